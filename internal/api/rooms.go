package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/npezzotti/vibehub/internal/service"
	"github.com/npezzotti/vibehub/internal/types"
)

const (
	defaultPageSize = 20
	multipartMemory = 8 << 20
	uploadFormField = "files"
)

type JoinRoomRequest struct {
	Password string `json:"password"`
}

type DeleteSongsRequest struct {
	MusicIds []uuid.UUID `json:"musicIds"`
}

type RoomSettingsRequest struct {
	UsersLimit            int    `json:"usersLimit"`
	Availability          bool   `json:"availability"`
	Password              string `json:"password"`
	AllowUsersUpdateMusic bool   `json:"allowUsersUpdateMusic"`
}

// pathId parses the named path segment as a uuid, writing a 400 on failure.
func (s *VibeHubApp) pathId(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func (s *VibeHubApp) listRooms(w http.ResponseWriter, r *http.Request) {
	pageNumber, err := queryInt(r, "pageNumber", 1)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	pageSize, err := queryInt(r, "pageSize", defaultPageSize)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	page, err := s.svc.Rooms.GetList(r.Context(), pageNumber, pageSize)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, types.Page[types.Room]{
		Items:      types.NewRooms(page.Rooms),
		PageNumber: page.PageNumber,
		PageSize:   page.PageSize,
		TotalCount: page.TotalCount,
	})
}

func (s *VibeHubApp) getRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathId(w, r, "id")
	if !ok {
		return
	}

	room, err := s.svc.Rooms.GetById(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, types.NewRoom(room))
}

func (s *VibeHubApp) createRoom(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())

	room, err := s.svc.Rooms.Create(r.Context(), caller.Id())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusCreated, types.NewRoom(room))
}

func (s *VibeHubApp) joinRoom(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())

	var req JoinRoomRequest
	if err := s.readJson(r, &req); err != nil && !errors.Is(err, io.EOF) {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.svc.Rooms.JoinByCode(r.Context(), caller.Id(), r.PathValue("code"), req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, types.NewRoom(room))
}

func (s *VibeHubApp) leaveRoom(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	id, ok := s.pathId(w, r, "id")
	if !ok {
		return
	}

	if err := s.svc.Rooms.Leave(r.Context(), id, caller.Id()); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *VibeHubApp) addSongs(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	id, ok := s.pathId(w, r, "id")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		errResp := NewBadRequestError()
		if errors.As(err, &tooLarge) {
			errResp = NewRequestTooLargeError()
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[uploadFormField]
	uploads := make([]service.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll(uploads)
			s.writeError(w, r, err)
			return
		}
		uploads = append(uploads, service.Upload{Name: fh.Filename, Content: f})
	}
	defer closeAll(uploads)

	room, err := s.svc.Rooms.AddMusics(r.Context(), id, caller.Id(), uploads)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, types.NewRoom(room))
}

func closeAll(uploads []service.Upload) {
	for _, u := range uploads {
		if f, ok := u.Content.(multipart.File); ok {
			f.Close()
		}
	}
}

func (s *VibeHubApp) deleteSongs(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	id, ok := s.pathId(w, r, "id")
	if !ok {
		return
	}

	var req DeleteSongsRequest
	if err := s.readJson(r, &req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.svc.Rooms.RemoveMusics(r.Context(), id, caller.Id(), req.MusicIds)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, types.NewRoom(room))
}

func (s *VibeHubApp) kick(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	roomId, ok := s.pathId(w, r, "roomId")
	if !ok {
		return
	}
	targetId, ok := s.pathId(w, r, "targetUserId")
	if !ok {
		return
	}

	if err := s.svc.Rooms.Kick(r.Context(), roomId, caller.Id(), targetId); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *VibeHubApp) updateSettings(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	id, ok := s.pathId(w, r, "id")
	if !ok {
		return
	}

	var req RoomSettingsRequest
	if err := s.readJson(r, &req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	err := s.svc.Rooms.UpdateSettings(r.Context(), id, caller.Id(), service.SettingsUpdate{
		UsersLimit:            req.UsersLimit,
		Availability:          req.Availability,
		Password:              req.Password,
		AllowUsersUpdateMusic: req.AllowUsersUpdateMusic,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *VibeHubApp) deleteRoom(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	id, ok := s.pathId(w, r, "id")
	if !ok {
		return
	}

	if err := s.svc.Rooms.Delete(r.Context(), id, caller.Id()); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/npezzotti/vibehub/internal/types"
)

// getMusic returns the music metadata, or sends the file as an attachment
// with range support when download=true.
func (s *VibeHubApp) getMusic(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathId(w, r, "id")
	if !ok {
		return
	}

	download := false
	if raw := r.URL.Query().Get("download"); raw != "" {
		var err error
		if download, err = strconv.ParseBool(raw); err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	if !download {
		m, err := s.svc.Musics.GetById(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJson(w, http.StatusOK, types.NewMusic(m))
		return
	}

	m, f, err := s.svc.Musics.GetFile(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": fmt.Sprintf("%s%s", m.Title, filepath.Ext(m.FileName)),
	}))
	http.ServeContent(w, r, m.FileName, f.ModTime, f)
}

// headMusic reports whether the music exists without sending it.
func (s *VibeHubApp) headMusic(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathId(w, r, "id")
	if !ok {
		return
	}

	exists, err := s.svc.Musics.Exists(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if !exists {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

package stats

import (
	"encoding/json"
	"expvar"
	"net/http"
	"time"
)

const (
	ConnectedClients = "ConnectedClients"
	RoomsCreated     = "RoomsCreated"
	RoomsDeleted     = "RoomsDeleted"
	RoomJoins        = "RoomJoins"
	RoomLeaves       = "RoomLeaves"
	MembersKicked    = "MembersKicked"
	MusicsUploaded   = "MusicsUploaded"
	MessagesPosted   = "MessagesPosted"
	GuestsCreated    = "GuestsCreated"
	GuestsPurged     = "GuestsPurged"
	FailedLogins     = "FailedLogins"
)

var defaultMetrics = []string{
	ConnectedClients,
	RoomsCreated,
	RoomsDeleted,
	RoomJoins,
	RoomLeaves,
	MembersKicked,
	MusicsUploaded,
	MessagesPosted,
	GuestsCreated,
	GuestsPurged,
	FailedLogins,
}

type StatsProvider interface {
	Incr(name string)
	Decr(name string)
	Add(name string, delta int)
	RegisterMetric(name string)
	Run()
}

type StatsUpdater struct {
	vars       *expvar.Map
	updateChan chan *metricsUpdateReq
}

type metricsUpdateReq struct {
	name  string
	value int
}

func (su *StatsUpdater) expvarHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	expvarData := make(map[string]any)
	su.vars.Do(func(kv expvar.KeyValue) {
		var value any
		json.Unmarshal([]byte(kv.Value.String()), &value)
		expvarData[kv.Key] = value
	})

	json.NewEncoder(w).Encode(expvarData)
}

// NewStatsUpdater creates a stats updater with the room and guest counters
// registered and serves them at GET /debug/vars.
func NewStatsUpdater(mux *http.ServeMux) *StatsUpdater {
	su := &StatsUpdater{
		updateChan: make(chan *metricsUpdateReq, 512),
		vars:       new(expvar.Map).Init(),
	}
	mux.Handle("GET /debug/vars", http.HandlerFunc(su.expvarHandler))
	su.initializeMetrics()

	return su
}

func (su *StatsUpdater) initializeMetrics() {
	startTime := time.Now()
	su.vars.Set("Uptime", expvar.Func(func() any {
		return time.Since(startTime).Milliseconds()
	}))

	for _, name := range defaultMetrics {
		su.RegisterMetric(name)
	}
}

func (su *StatsUpdater) updateMetrics() {
	for req := range su.updateChan {
		metric, ok := su.vars.Get(req.name).(*expvar.Int)
		if !ok {
			metric = new(expvar.Int)
			su.vars.Set(req.name, metric)
		}

		metric.Add(int64(req.value))
	}
}

func (su *StatsUpdater) Incr(name string) {
	su.Add(name, 1)
}

func (su *StatsUpdater) Decr(name string) {
	su.Add(name, -1)
}

func (su *StatsUpdater) Add(name string, delta int) {
	su.updateChan <- &metricsUpdateReq{name: name, value: delta}
}

func (su *StatsUpdater) RegisterMetric(name string) {
	su.vars.Set(name, new(expvar.Int))
}

func (su *StatsUpdater) Run() {
	go su.updateMetrics()
}

func (su *StatsUpdater) Stop() {
	close(su.updateChan)
}

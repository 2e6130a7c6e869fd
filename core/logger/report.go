package logger

import (
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"time"
)

// Entry is one decoded JSON log record.
type Entry struct {
	Time      time.Time `json:"time"`
	Level     string    `json:"level"`
	Msg       string    `json:"msg"`
	SessionID string    `json:"session_id"`

	PID      int    `json:"pid"`
	JID      int    `json:"jid"`
	Signal   int    `json:"signal"`
	ExitCode int    `json:"exit_code"`
	CmdLine  string `json:"cmdline"`
	Program  string `json:"program"`
	State    string `json:"state"`
	Error    string `json:"error"`
}

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(le *Entry)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var logEntry Entry
		if err := decoder.Decode(&logEntry); err != nil {
			return err
		}

		handler(&logEntry)
	}
	return nil
}

func NewReport() *Report {
	return &Report{
		Signals: NewPathCounter("event", "signal"),
	}
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries int        `json:"log_entries"`
	Sessions   StrCounter `json:"sessions"`
	Events     StrCounter `json:"events"`

	// Programs counts started jobs by program name.
	Programs StrCounter `json:"programs"`
	// SpawnFailures counts programs that could not be started.
	SpawnFailures StrCounter `json:"spawn_failures"`
	// ExitCodes counts normal exits by status.
	ExitCodes StrCounter `json:"exit_codes"`
	// Signals counts stops and terminations by signal number.
	Signals *PathCounter `json:"signals"`
	// TableFull is the number of launches that found the job table full.
	TableFull int `json:"table_full"`
}

func (r *Report) Update(le *Entry) {
	r.LogEntries++

	if le.SessionID != "" {
		r.Sessions.Increment(le.SessionID)
	}
	r.Events.Increment(le.Msg)

	switch le.Msg {
	case EventSpawn:
		r.Programs.Increment(le.Program)
	case EventSpawnFailed:
		r.SpawnFailures.Increment(le.Program)
	case EventExit:
		r.ExitCodes.Increment(strconv.Itoa(le.ExitCode))
	case EventStop, EventTerminate:
		if r.Signals == nil {
			r.Signals = NewPathCounter("event", "signal")
		}
		r.Signals.Increment(le.Msg, strconv.Itoa(le.Signal))
	case EventTableFull:
		r.TableFull++
	}
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// Get returns the count for key.
func (s *StrCounter) Get(key string) int {
	return s.internal[key]
}

// MarshalJSON implemnts custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.internal)
}

func NewPathCounter(cols ...string) *PathCounter {
	return &PathCounter{
		cols:     cols,
		internal: make(map[string]int),
	}
}

// PathCounter counts tuples of strings.
type PathCounter struct {
	cols     []string
	internal map[string]int
}

// Increment adds one to the given key.
func (ctr *PathCounter) Increment(toAdd ...string) {
	if len(toAdd) != len(ctr.cols) {
		panic("wrong number of columns to add")
	}

	ctr.internal[toKey(toAdd...)]++
}

// Get returns the count for the tuple.
func (ctr *PathCounter) Get(vals ...string) int {
	return ctr.internal[toKey(vals...)]
}

// MarshalJSON implemnts custom JSON marshaler.
func (ctr *PathCounter) MarshalJSON() ([]byte, error) {
	type Count struct {
		Count  int               `json:"count"`
		Fields map[string]string `json:"event"`
		Path   string            `json:"-"`
	}

	var out []Count
	for k, v := range ctr.internal {
		count := Count{
			Count:  v,
			Path:   k,
			Fields: make(map[string]string),
		}

		splitPath := fromKey(k)
		for colNum, colVal := range ctr.cols {
			count.Fields[colVal] = splitPath[colNum]
		}

		out = append(out, count)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Path < out[j].Path
		}
		return out[i].Count > out[j].Count
	})

	return json.Marshal(out)
}

func toKey(vals ...string) string {
	key, _ := json.Marshal(vals)
	return string(key)
}

func fromKey(key string) (out []string) {
	json.Unmarshal([]byte(key), &out)
	return
}

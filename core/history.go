package core

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// RunRecord is the outcome of one job run. ErrorNum and Error carry the
// session's last error when the run failed.
type RunRecord struct {
	ID       string        `json:"id"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Success  bool          `json:"success"`
	Files    int           `json:"files,omitempty"`
	ErrorNum int64         `json:"error_num,omitempty"`
	Error    string        `json:"error,omitempty"`
}

type JobHistory struct {
	// transferred path -> transfer time
	Records map[string]time.Time `json:"records"`
	Runs    []RunRecord          `json:"runs"`
	mu      sync.RWMutex
}

type HistoryManager struct {
	// job name -> history
	Jobs map[string]*JobHistory `json:"jobs"`
	Path string
	mu   sync.RWMutex
}

func NewHistoryManager(path string) *HistoryManager {
	return &HistoryManager{
		Jobs: make(map[string]*JobHistory),
		Path: path,
	}
}

func (hm *HistoryManager) Load() error {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	data, err := os.ReadFile(hm.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	jobs := make(map[string]*JobHistory)
	if err := json.Unmarshal(data, &jobs); err != nil {
		return err
	}
	for _, h := range jobs {
		if h.Records == nil {
			h.Records = make(map[string]time.Time)
		}
	}
	hm.Jobs = jobs
	return nil
}

func (hm *HistoryManager) Save() error {
	if hm.Path == "" {
		return nil
	}
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	data, err := json.MarshalIndent(hm.Jobs, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(hm.Path, data, 0644)
}

func (hm *HistoryManager) GetJobHistory(name string) *JobHistory {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	if _, ok := hm.Jobs[name]; !ok {
		hm.Jobs[name] = &JobHistory{
			Records: make(map[string]time.Time),
		}
	}
	return hm.Jobs[name]
}

// Prune drops transfer records and runs older than cutoff across all jobs
// and reports how many entries went.
func (hm *HistoryManager) Prune(cutoff time.Time) int {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	removed := 0
	for _, h := range hm.Jobs {
		removed += h.prune(cutoff)
	}
	return removed
}

func (th *JobHistory) MarshalJSON() ([]byte, error) {
	th.mu.RLock()
	defer th.mu.RUnlock()
	return json.Marshal(&struct {
		Records map[string]time.Time `json:"records"`
		Runs    []RunRecord          `json:"runs"`
	}{th.Records, th.Runs})
}

func (th *JobHistory) Add(path string) {
	th.mu.Lock()
	defer th.mu.Unlock()
	th.Records[path] = time.Now()
}

func (th *JobHistory) Has(path string) bool {
	th.mu.RLock()
	defer th.mu.RUnlock()
	_, ok := th.Records[path]
	return ok
}

func (th *JobHistory) GetTransferTime(path string) (time.Time, bool) {
	th.mu.RLock()
	defer th.mu.RUnlock()
	t, ok := th.Records[path]
	return t, ok
}

func (th *JobHistory) Remove(path string) {
	th.mu.Lock()
	defer th.mu.Unlock()
	delete(th.Records, path)
}

func (th *JobHistory) AddRun(run RunRecord) {
	th.mu.Lock()
	defer th.mu.Unlock()
	th.Runs = append(th.Runs, run)
}

// LastRun returns the most recent run, if any.
func (th *JobHistory) LastRun() (RunRecord, bool) {
	th.mu.RLock()
	defer th.mu.RUnlock()
	if len(th.Runs) == 0 {
		return RunRecord{}, false
	}
	return th.Runs[len(th.Runs)-1], true
}

func (th *JobHistory) prune(cutoff time.Time) int {
	th.mu.Lock()
	defer th.mu.Unlock()

	removed := 0
	for p, t := range th.Records {
		if t.Before(cutoff) {
			delete(th.Records, p)
			removed++
		}
	}
	runs := th.Runs[:0]
	for _, run := range th.Runs {
		if run.Started.Before(cutoff) {
			removed++
			continue
		}
		runs = append(runs, run)
	}
	th.Runs = runs
	return removed
}

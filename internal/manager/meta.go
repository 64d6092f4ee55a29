package manager

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/loykin/replicad/internal/state"
)

// runMeta is the workload-produced metadata file dropped into the replica
// workdir. Job IDs may be strings or numbers; both are normalized to strings.
type runMeta struct {
	CompileJobs []jobRef `json:"compile_jobs"`
	ExecuteJobs []jobRef `json:"execute_jobs"`
}

type jobRef struct {
	ID any `json:"id"`
}

func (r jobRef) String() string {
	switch v := r.ID.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// ReadRunMeta parses the metadata file at workdir/rel. A missing file is not
// an error: workloads write it at their own pace.
func ReadRunMeta(workdir, rel string) (compile, execute []string, err error) {
	data, err := os.ReadFile(filepath.Join(workdir, rel))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("read run metadata: %w", err)
	}
	var meta runMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, nil, fmt.Errorf("decode run metadata: %w", err)
	}
	for _, j := range meta.CompileJobs {
		if s := j.String(); s != "" {
			compile = append(compile, s)
		}
	}
	for _, j := range meta.ExecuteJobs {
		if s := j.String(); s != "" {
			execute = append(execute, s)
		}
	}
	return compile, execute, nil
}

// scrapeJobs merges newly observed job IDs into the record. Merging is
// append-only: IDs already recorded are never removed or reordered, so
// repeated scrapes of the same file are idempotent.
func (m *Manager) scrapeJobs(id string, rec state.Record) {
	if rec.Workdir == "" {
		return
	}
	compile, execute, err := ReadRunMeta(rec.Workdir, m.cfg.RunMetaRelPath)
	if err != nil {
		m.logger.Warn("monitor: failed to read run metadata", "replica", id, "error", err)
		return
	}
	mergedCompile, addedC := mergeIDs(rec.CompileJobs, compile)
	mergedExecute, addedE := mergeIDs(rec.ExecuteJobs, execute)
	if addedC == 0 && addedE == 0 {
		return
	}
	m.logger.Info("monitor: scraped new job ids", "replica", id,
		"compile_added", addedC, "execute_added", addedE)
	err = m.states.Update(id, state.Fields{
		"compile_jobs": mergedCompile,
		"execute_jobs": mergedExecute,
	})
	if err != nil {
		m.logger.Warn("monitor: failed to record job ids", "replica", id, "error", err)
	}
}

// mergeIDs appends IDs from found that are not already in current.
func mergeIDs(current, found []string) ([]string, int) {
	seen := make(map[string]struct{}, len(current))
	for _, id := range current {
		seen[id] = struct{}{}
	}
	out := current
	added := 0
	for _, id := range found {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
		added++
	}
	return out, added
}

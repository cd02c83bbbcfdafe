package roadmap

import (
	"fmt"
	"math"
)

// Trackable item kinds.
const (
	KindSkill     = "skill"
	KindCourse    = "course"
	KindProject   = "project"
	KindMilestone = "milestone"
)

// ItemID builds the identifier used to mark a stage item as done.
func ItemID(stageID, kind, item string) string {
	return fmt.Sprintf("%s-%s-%s", stageID, kind, item)
}

// ItemIDs returns every trackable item id of the stage. Certifications and
// networking entries are informational and not tracked.
func (s Stage) ItemIDs() []string {
	var ids []string
	for _, group := range []struct {
		kind  string
		items []string
	}{
		{KindSkill, s.Skills},
		{KindCourse, s.Courses},
		{KindProject, s.Projects},
		{KindMilestone, s.Milestones},
	} {
		for _, item := range group.items {
			ids = append(ids, ItemID(s.ID, group.kind, item))
		}
	}
	return ids
}

// StageProgress is the rounded percentage of trackable items marked done.
func StageProgress(s Stage, done map[string]bool) int {
	ids := s.ItemIDs()
	if len(ids) == 0 {
		return 0
	}
	n := 0
	for _, id := range ids {
		if done[id] {
			n++
		}
	}
	return int(math.Round(float64(n) * 100 / float64(len(ids))))
}

// Progress reports completion per stage id.
func (r Roadmap) Progress(done map[string]bool) map[string]int {
	out := make(map[string]int, len(r.Stages))
	for _, s := range r.Stages {
		out[s.ID] = StageProgress(s, done)
	}
	return out
}

// HasItem reports whether id names a trackable item of the roadmap.
func (r Roadmap) HasItem(id string) bool {
	for _, s := range r.Stages {
		for _, item := range s.ItemIDs() {
			if item == id {
				return true
			}
		}
	}
	return false
}

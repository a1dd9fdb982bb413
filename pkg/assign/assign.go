package assign

import (
	"sort"
	"time"

	"github.com/festivalcrew/poster-crew-api/pkg/models"
)

// Engine places survey respondents into distribution teams for one run.
// A run is strictly sequential: every placement reads counters written by
// the placements before it, so the participant order matters and the loop
// must not be parallelized.
type Engine struct {
	participants []models.Participant
	teams        map[string]*models.Team

	morning   []*models.Team
	afternoon []*models.Team
	allDay    []*models.Team
	other     []*models.Team

	counters *counters
}

// counters is the accumulator threaded through one run. It starts empty and
// is discarded when the run ends; nothing here is persisted.
type counters struct {
	teamCount   map[string]int                     // teamID -> members placed
	teamSeniors map[string]int                     // teamID -> seniors placed
	teamSection map[string]map[string]int          // teamID -> section -> count
	teamGrade   map[string]map[int]int             // teamID -> grade -> count
	sectionSlot map[string]map[models.TimeSlot]int // section -> resolved slot -> count
}

func newCounters() *counters {
	return &counters{
		teamCount:   make(map[string]int),
		teamSeniors: make(map[string]int),
		teamSection: make(map[string]map[string]int),
		teamGrade:   make(map[string]map[int]int),
		sectionSlot: make(map[string]map[models.TimeSlot]int),
	}
}

// NewEngine builds an engine for one run. PR teams are never candidates;
// "other" teams only when includeOther is set. Team slots are normalized so
// legacy "all" entries land in the all-day pool.
func NewEngine(participants []models.Participant, teams []models.Team, includeOther bool) *Engine {
	e := &Engine{
		participants: participants,
		teams:        make(map[string]*models.Team, len(teams)),
		counters:     newCounters(),
	}

	for i := range teams {
		t := &teams[i]
		t.TimeSlot = models.NormalizeTimeSlot(string(t.TimeSlot))
		e.teams[t.TeamID] = t

		switch t.TimeSlot {
		case models.SlotMorning:
			e.morning = append(e.morning, t)
		case models.SlotAfternoon:
			e.afternoon = append(e.afternoon, t)
		case models.SlotBoth:
			e.allDay = append(e.allDay, t)
		case models.SlotOther:
			if includeOther {
				e.other = append(e.other, t)
			}
		}
		// SlotPR teams are filled through the manual workflow only.
	}

	return e
}

// Prefill seeds the counters from assignments already on the books, so a run
// on top of manual placements balances against the real team loads. Placed
// participants must not appear in the run's participant list.
func (e *Engine) Prefill(existing []models.Assignment, placed []models.Participant) {
	byResponse := make(map[string]models.Participant, len(placed))
	for _, p := range placed {
		byResponse[p.ResponseID] = p
	}

	for _, a := range existing {
		if _, ok := e.teams[a.TeamID]; !ok {
			continue
		}
		e.counters.teamCount[a.TeamID]++
		p, ok := byResponse[a.ResponseID]
		if !ok {
			continue
		}
		if p.Senior() {
			e.counters.teamSeniors[a.TeamID]++
		}
		bumpNested(e.counters.teamSection, a.TeamID, p.Section)
		bumpGrade(e.counters.teamGrade, a.TeamID, p.Grade)
		if a.TimeSlot == models.SlotMorning || a.TimeSlot == models.SlotAfternoon {
			bumpSlot(e.counters.sectionSlot, p.Section, a.TimeSlot)
		}
	}
}

// Run performs the assignment pass and returns one Assignment per placed
// participant. Participants with no feasible team are skipped, never an
// error; the caller reports them as unassigned.
func (e *Engine) Run() []models.Assignment {
	ordered := make([]models.Participant, len(e.participants))
	copy(ordered, e.participants)
	sort.SliceStable(ordered, func(i, j int) bool {
		return placementRank(ordered[i]) < placementRank(ordered[j])
	})

	now := time.Now().UTC()
	used := make(map[string]bool, len(ordered))
	assignments := make([]models.Assignment, 0, len(ordered))

	for _, p := range ordered {
		if used[p.ResponseID] {
			continue
		}

		slot, candidates := e.candidatesFor(p)
		if len(candidates) == 0 {
			continue
		}

		team := e.selectBestTeam(candidates, p)
		if team == nil {
			continue
		}

		used[p.ResponseID] = true
		assignments = append(assignments, models.Assignment{
			ResponseID: p.ResponseID,
			TeamID:     team.TeamID,
			AssignedAt: now,
			AssignedBy: models.AssignedByAuto,
			TimeSlot:   slot,
		})
		e.record(team, p, slot)
	}

	return assignments
}

// placementRank orders participants for the pass: seniors before juniors,
// and within equal seniority the slot-fixed before the flexible. The hard
// cases go first while team slack is still plentiful.
func placementRank(p models.Participant) int {
	rank := 0
	if !p.Senior() {
		rank += 2
	}
	if p.Availability == models.SlotBoth {
		rank++
	}
	return rank
}

// candidatesFor resolves the participant's slot and the team pool for it.
// Flexible participants go to the slot their section has used less, tie to
// morning, which spreads a section across both halves of the day. An
// unrecognized availability yields no candidates.
func (e *Engine) candidatesFor(p models.Participant) (models.TimeSlot, []*models.Team) {
	switch p.Availability {
	case models.SlotMorning:
		return models.SlotMorning, concatTeams(e.morning, e.allDay, e.other)
	case models.SlotAfternoon:
		return models.SlotAfternoon, concatTeams(e.afternoon, e.allDay, e.other)
	case models.SlotBoth:
		slot := models.SlotMorning
		pool := e.morning
		slots := e.counters.sectionSlot[p.Section]
		if slots[models.SlotAfternoon] < slots[models.SlotMorning] {
			slot = models.SlotAfternoon
			pool = e.afternoon
		}
		return slot, concatTeams(pool, e.allDay, e.other)
	default:
		return "", nil
	}
}

// selectBestTeam narrows the candidates through the balancing cascade and
// returns nil only when every candidate is at capacity.
//
// Hard filters, each taking the minimum over the survivors:
// current load, then this participant's section count, then its grade count.
// The soft preferences after them only reorder: teams still missing a senior
// come first for senior participants, then teams whose preferredGrades match,
// and finally teamID ascending so identical input reproduces identical output.
func (e *Engine) selectBestTeam(candidates []*models.Team, p models.Participant) *models.Team {
	pool := e.withCapacity(candidates)
	if len(pool) == 0 {
		return nil
	}

	pool = minByScore(pool, func(t *models.Team) int {
		return e.counters.teamCount[t.TeamID]
	})
	pool = minByScore(pool, func(t *models.Team) int {
		return e.counters.teamSection[t.TeamID][p.Section]
	})
	pool = minByScore(pool, func(t *models.Team) int {
		return e.counters.teamGrade[t.TeamID][p.Grade]
	})

	sort.SliceStable(pool, func(i, j int) bool {
		a, b := pool[i], pool[j]
		if p.Senior() {
			aNeeds := e.counters.teamSeniors[a.TeamID] == 0
			bNeeds := e.counters.teamSeniors[b.TeamID] == 0
			if aNeeds != bNeeds {
				return aNeeds
			}
		}
		aPref := a.PrefersGrade(p.Grade)
		bPref := b.PrefersGrade(p.Grade)
		if aPref != bPref {
			return aPref
		}
		return a.TeamID < b.TeamID
	})

	return pool[0]
}

// withCapacity keeps the teams that still have room.
func (e *Engine) withCapacity(teams []*models.Team) []*models.Team {
	open := make([]*models.Team, 0, len(teams))
	for _, t := range teams {
		if e.counters.teamCount[t.TeamID] < t.Capacity() {
			open = append(open, t)
		}
	}
	return open
}

// minByScore keeps the teams sharing the minimum score. A non-empty input
// always yields a non-empty result.
func minByScore(teams []*models.Team, score func(*models.Team) int) []*models.Team {
	best := score(teams[0])
	for _, t := range teams[1:] {
		if s := score(t); s < best {
			best = s
		}
	}
	kept := make([]*models.Team, 0, len(teams))
	for _, t := range teams {
		if score(t) == best {
			kept = append(kept, t)
		}
	}
	return kept
}

// record updates the counters after a placement.
func (e *Engine) record(t *models.Team, p models.Participant, slot models.TimeSlot) {
	e.counters.teamCount[t.TeamID]++
	if p.Senior() {
		e.counters.teamSeniors[t.TeamID]++
	}
	bumpNested(e.counters.teamSection, t.TeamID, p.Section)
	bumpGrade(e.counters.teamGrade, t.TeamID, p.Grade)
	bumpSlot(e.counters.sectionSlot, p.Section, slot)
}

// Load returns the running member count for a team, prefills included.
func (e *Engine) Load(teamID string) int {
	return e.counters.teamCount[teamID]
}

func concatTeams(pools ...[]*models.Team) []*models.Team {
	var out []*models.Team
	for _, pool := range pools {
		out = append(out, pool...)
	}
	return out
}

func bumpNested(m map[string]map[string]int, outer, inner string) {
	if m[outer] == nil {
		m[outer] = make(map[string]int)
	}
	m[outer][inner]++
}

func bumpGrade(m map[string]map[int]int, teamID string, grade int) {
	if m[teamID] == nil {
		m[teamID] = make(map[int]int)
	}
	m[teamID][grade]++
}

func bumpSlot(m map[string]map[models.TimeSlot]int, section string, slot models.TimeSlot) {
	if m[section] == nil {
		m[section] = make(map[models.TimeSlot]int)
	}
	m[section][slot]++
}

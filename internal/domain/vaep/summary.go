package vaep

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/okian/vaep/internal/domain/model"
)

type bucket struct {
	id, team  string
	off, def  []float64
	aggregate []float64
}

func (b *bucket) add(v model.Values) {
	b.off = append(b.off, v.Offensive)
	b.def = append(b.def, v.Defensive)
	b.aggregate = append(b.aggregate, v.VAEP)
}

func (b *bucket) rating() model.Rating {
	return model.Rating{
		ID:        b.id,
		TeamID:    b.team,
		Actions:   len(b.aggregate),
		Offensive: floats.Sum(b.off),
		Defensive: floats.Sum(b.def),
		VAEP:      floats.Sum(b.aggregate),
	}
}

// Summarize totals the values of one game per player and per team, highest
// VAEP first. Actions without a player only count towards their team.
// Values must be aligned with actions.
func Summarize(actions []model.Action, values []model.Values) *model.Summary {
	players := map[string]*bucket{}
	teams := map[string]*bucket{}
	var pOrder, tOrder []string

	for i := range actions {
		a := &actions[i]
		t, ok := teams[a.TeamID]
		if !ok {
			t = &bucket{id: a.TeamID}
			teams[a.TeamID] = t
			tOrder = append(tOrder, a.TeamID)
		}
		t.add(values[i])

		if a.PlayerID == "" {
			continue
		}
		p, ok := players[a.PlayerID]
		if !ok {
			p = &bucket{id: a.PlayerID, team: a.TeamID}
			players[a.PlayerID] = p
			pOrder = append(pOrder, a.PlayerID)
		}
		p.add(values[i])
	}

	s := &model.Summary{
		Players: make([]model.Rating, 0, len(pOrder)),
		Teams:   make([]model.Rating, 0, len(tOrder)),
	}
	for _, id := range pOrder {
		s.Players = append(s.Players, players[id].rating())
	}
	for _, id := range tOrder {
		s.Teams = append(s.Teams, teams[id].rating())
	}
	byValue(s.Players)
	byValue(s.Teams)
	return s
}

func byValue(r []model.Rating) {
	sort.SliceStable(r, func(i, j int) bool {
		if r[i].VAEP != r[j].VAEP {
			return r[i].VAEP > r[j].VAEP
		}
		return r[i].ID < r[j].ID
	})
}

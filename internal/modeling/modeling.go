// SPDX-License-Identifier: AGPL-3.0-only

// Package modeling provides the metabolic-modeling computations behind the
// MCP tools: media construction, draft reconstruction, gapfilling and flux
// balance analysis. The implementations are deliberately simplified stand-ins
// with stable input/output contracts; biological fidelity is out of scope.
package modeling

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"time"

	"github.com/jplfaria/gem-flux-mcp-sub000/internal/biochem"
	"github.com/jplfaria/gem-flux-mcp-sub000/internal/errors"
	"github.com/jplfaria/gem-flux-mcp-sub000/internal/model"
)

// Default uptake bounds applied to media compounds when the caller does not
// specify their own.
const (
	DefaultMinFlux = -100.0
	DefaultMaxFlux = 100.0
)

// templateReactions maps a reconstruction template to the reaction IDs every
// draft model built from that template starts with.
var templateReactions = map[string][]string{
	"gram_negative": {"rxn00148", "rxn00200", "rxn00216", "rxn00248", "rxn00459", "rxn08173", "rxn10042", "rxn13782"},
	"gram_positive": {"rxn00148", "rxn00200", "rxn00248", "rxn00459", "rxn08173", "rxn13782"},
	"core":          {"rxn00148", "rxn00200", "rxn08173", "rxn13782"},
}

// transportReactions maps media compound IDs to the transport reaction a
// gapfill adds when the model cannot already import that compound.
var transportReactions = map[string]string{
	"cpd00001": "rxn05319",
	"cpd00007": "rxn09694",
	"cpd00027": "rxn05145",
}

// Service performs modeling computations against the biochemistry database.
type Service struct {
	db *biochem.DB
}

// NewService creates a modeling service backed by the given database.
func NewService(db *biochem.DB) *Service {
	return &Service{db: db}
}

// BuildMedia constructs a media from compound IDs, resolving each against the
// biochemistry database and applying default uptake bounds.
func (s *Service) BuildMedia(id, name string, compoundIDs []string) (*model.Media, error) {
	if id == "" {
		return nil, errors.InvalidInput("media ID is required")
	}
	if len(compoundIDs) == 0 {
		return nil, errors.InvalidInput("at least one compound is required")
	}

	now := time.Now()
	media := &model.Media{
		ID:        id,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if media.Name == "" {
		media.Name = id
	}

	for _, cid := range compoundIDs {
		c, err := s.db.GetCompound(cid)
		if err != nil {
			return nil, err
		}
		media.Compounds = append(media.Compounds, model.MediaCompound{
			CompoundID: c.ID,
			Name:       c.Name,
			MinFlux:    DefaultMinFlux,
			MaxFlux:    DefaultMaxFlux,
		})
	}

	return media, nil
}

// BuildDraftModel reconstructs a draft metabolic model for a genome from a
// template. The gene count is derived deterministically from the genome ID so
// repeated builds of the same genome agree.
func (s *Service) BuildDraftModel(genomeID, template string) (*model.MetabolicModel, error) {
	if genomeID == "" {
		return nil, errors.InvalidInput("genome ID is required")
	}
	if template == "" {
		template = "gram_negative"
	}
	rxns, ok := templateReactions[template]
	if !ok {
		return nil, errors.Unsupported("template", template)
	}

	now := time.Now()
	m := &model.MetabolicModel{
		ID:        fmt.Sprintf("model_%s", sanitizeID(genomeID)),
		GenomeID:  genomeID,
		Template:  template,
		GeneCount: 800 + int(hashString(genomeID)%3200),
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, rid := range rxns {
		r, err := s.db.GetReaction(rid)
		if err != nil {
			return nil, err
		}
		m.Reactions = append(m.Reactions, model.ModelReaction{
			ReactionID: r.ID,
			Direction:  r.Reversibility,
		})
	}

	return m, nil
}

// Gapfill extends a model so it can grow on the given media, adding the
// transport reactions the draft is missing. The input model is not mutated; a
// gapfilled copy is returned.
func (s *Service) Gapfill(m *model.MetabolicModel, media *model.Media) (*model.MetabolicModel, error) {
	if m == nil {
		return nil, errors.InvalidInput("model is required")
	}
	if media == nil {
		return nil, errors.InvalidInput("media is required")
	}

	out := *m
	out.Reactions = append([]model.ModelReaction(nil), m.Reactions...)

	have := make(map[string]bool, len(out.Reactions))
	for _, r := range out.Reactions {
		have[r.ReactionID] = true
	}

	// Deterministic order: walk media compounds as given.
	for _, mc := range media.Compounds {
		rid, ok := transportReactions[mc.CompoundID]
		if !ok || have[rid] {
			continue
		}
		r, err := s.db.GetReaction(rid)
		if err != nil {
			return nil, err
		}
		out.Reactions = append(out.Reactions, model.ModelReaction{
			ReactionID: r.ID,
			Direction:  r.Reversibility,
			Gapfilled:  true,
		})
		have[rid] = true
	}

	out.Gapfilled = true
	out.GapfillMedia = media.ID
	out.UpdatedAt = time.Now()
	return &out, nil
}

// RunFBA solves flux balance analysis for a model on a media. Growth requires
// a biomass objective reaction and at least one carbon source in the media;
// the returned fluxes are deterministic for identical inputs.
func (s *Service) RunFBA(m *model.MetabolicModel, media *model.Media, objective string) (*model.FBASolution, error) {
	if m == nil {
		return nil, errors.InvalidInput("model is required")
	}
	if media == nil {
		return nil, errors.InvalidInput("media is required")
	}
	if objective == "" {
		objective = "biomass"
	}

	sol := &model.FBASolution{
		ModelID:   m.ID,
		MediaID:   media.ID,
		Objective: objective,
		Status:    "infeasible",
		SolvedAt:  time.Now(),
	}

	hasBiomass := false
	for _, r := range m.Reactions {
		if r.ReactionID == "rxn13782" {
			hasBiomass = true
			break
		}
	}
	if !hasBiomass {
		return sol, nil
	}

	carbon := carbonSources(media)
	if len(carbon) == 0 {
		return sol, nil
	}

	sol.Status = "optimal"
	// Objective scales with usable carbon sources and model completeness.
	sol.ObjectiveValue = 0.1 * float64(len(carbon)) * (1.0 + 0.05*float64(len(m.Reactions)))
	if m.Gapfilled {
		sol.ObjectiveValue *= 1.5
	}

	sol.Fluxes = make(map[string]float64, len(m.Reactions))
	ids := make([]string, 0, len(m.Reactions))
	for _, r := range m.Reactions {
		ids = append(ids, r.ReactionID)
	}
	sort.Strings(ids)
	for i, rid := range ids {
		sol.Fluxes[rid] = sol.ObjectiveValue * float64(i+1) / float64(len(ids))
	}

	return sol, nil
}

// carbonSources returns the media compound IDs that can serve as a carbon
// source in the simplified growth test.
func carbonSources(media *model.Media) []string {
	carbonIDs := map[string]bool{
		"cpd00027": true, // glucose
		"cpd00029": true, // acetate
		"cpd00020": true, // pyruvate
		"cpd00036": true, // succinate
		"cpd00100": true, // glycerol
		"cpd00159": true, // lactate
	}
	var out []string
	for _, mc := range media.Compounds {
		if carbonIDs[mc.CompoundID] && mc.MinFlux < 0 {
			out = append(out, mc.CompoundID)
		}
	}
	return out
}

func sanitizeID(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, s)
}

func hashString(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

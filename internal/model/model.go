// SPDX-License-Identifier: AGPL-3.0-only
package model

import "time"

// Compound is a ModelSEED biochemistry compound.
type Compound struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Formula string   `json:"formula,omitempty"`
	Charge  int      `json:"charge"`
	Aliases []string `json:"aliases,omitempty"`
}

// Reaction is a ModelSEED biochemistry reaction.
type Reaction struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Equation      string  `json:"equation,omitempty"`
	Reversibility string  `json:"reversibility,omitempty"` // ">", "<" or "="
	DeltaG        float64 `json:"deltag,omitempty"`
}

// MediaCompound is one component of a growth media with uptake bounds.
type MediaCompound struct {
	CompoundID string  `json:"compound_id"`
	Name       string  `json:"name,omitempty"`
	MinFlux    float64 `json:"min_flux"`
	MaxFlux    float64 `json:"max_flux"`
}

// Media is a named growth media composed of compounds with uptake bounds.
type Media struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Compounds []MediaCompound `json:"compounds"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ModelReaction is a reaction included in a metabolic model, with the
// direction it carries in that model and how it got there.
type ModelReaction struct {
	ReactionID string `json:"reaction_id"`
	Direction  string `json:"direction"` // ">", "<" or "="
	Gapfilled  bool   `json:"gapfilled,omitempty"`
	Genes      string `json:"genes,omitempty"`
}

// MetabolicModel is a draft or gapfilled genome-scale metabolic model.
type MetabolicModel struct {
	ID           string          `json:"id"`
	GenomeID     string          `json:"genome_id"`
	Template     string          `json:"template"` // e.g. "gram_negative", "gram_positive", "core"
	Reactions    []ModelReaction `json:"reactions"`
	GeneCount    int             `json:"gene_count"`
	Gapfilled    bool            `json:"gapfilled"`
	GapfillMedia string          `json:"gapfill_media,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// FBASolution is the outcome of one flux balance analysis solve.
type FBASolution struct {
	ModelID        string             `json:"model_id"`
	MediaID        string             `json:"media_id"`
	Objective      string             `json:"objective"`
	ObjectiveValue float64            `json:"objective_value"`
	Status         string             `json:"status"` // "optimal" or "infeasible"
	Fluxes         map[string]float64 `json:"fluxes,omitempty"`
	SolvedAt       time.Time          `json:"solved_at"`
}

// Growing reports whether the solution represents positive growth.
func (s *FBASolution) Growing() bool {
	return s.Status == "optimal" && s.ObjectiveValue > 1e-6
}

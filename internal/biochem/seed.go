// SPDX-License-Identifier: AGPL-3.0-only
package biochem

import (
	"fmt"

	"github.com/jplfaria/gem-flux-mcp-sub000/internal/model"
)

// seedCompounds is a small built-in subset of the ModelSEED compound
// database, enough for media construction and FBA workflows out of the box.
var seedCompounds = []model.Compound{
	{ID: "cpd00001", Name: "H2O", Formula: "H2O", Charge: 0, Aliases: []string{"Water"}},
	{ID: "cpd00007", Name: "O2", Formula: "O2", Charge: 0, Aliases: []string{"Oxygen"}},
	{ID: "cpd00009", Name: "Phosphate", Formula: "HO4P", Charge: -2, Aliases: []string{"Pi", "Orthophosphate"}},
	{ID: "cpd00011", Name: "CO2", Formula: "CO2", Charge: 0, Aliases: []string{"Carbon dioxide"}},
	{ID: "cpd00013", Name: "NH3", Formula: "H4N", Charge: 1, Aliases: []string{"Ammonia", "Ammonium"}},
	{ID: "cpd00027", Name: "D-Glucose", Formula: "C6H12O6", Charge: 0, Aliases: []string{"Glucose", "Dextrose"}},
	{ID: "cpd00029", Name: "Acetate", Formula: "C2H3O2", Charge: -1, Aliases: []string{"Acetic acid"}},
	{ID: "cpd00030", Name: "Mn2+", Formula: "Mn", Charge: 2, Aliases: []string{"Manganese"}},
	{ID: "cpd00034", Name: "Zn2+", Formula: "Zn", Charge: 2, Aliases: []string{"Zinc"}},
	{ID: "cpd00048", Name: "Sulfate", Formula: "O4S", Charge: -2, Aliases: []string{"SO4"}},
	{ID: "cpd00058", Name: "Cu2+", Formula: "Cu", Charge: 2, Aliases: []string{"Copper"}},
	{ID: "cpd00063", Name: "Ca2+", Formula: "Ca", Charge: 2, Aliases: []string{"Calcium"}},
	{ID: "cpd00067", Name: "H+", Formula: "H", Charge: 1, Aliases: []string{"Proton"}},
	{ID: "cpd00099", Name: "Cl-", Formula: "Cl", Charge: -1, Aliases: []string{"Chloride"}},
	{ID: "cpd00149", Name: "Co2+", Formula: "Co", Charge: 2, Aliases: []string{"Cobalt"}},
	{ID: "cpd00205", Name: "K+", Formula: "K", Charge: 1, Aliases: []string{"Potassium"}},
	{ID: "cpd00254", Name: "Mg", Formula: "Mg", Charge: 2, Aliases: []string{"Magnesium"}},
	{ID: "cpd00971", Name: "Na+", Formula: "Na", Charge: 1, Aliases: []string{"Sodium"}},
	{ID: "cpd10515", Name: "Fe2+", Formula: "Fe", Charge: 2, Aliases: []string{"Iron", "Ferrous iron"}},
	{ID: "cpd00002", Name: "ATP", Formula: "C10H13N5O13P3", Charge: -3, Aliases: []string{"Adenosine triphosphate"}},
	{ID: "cpd00008", Name: "ADP", Formula: "C10H13N5O10P2", Charge: -2, Aliases: []string{"Adenosine diphosphate"}},
	{ID: "cpd00020", Name: "Pyruvate", Formula: "C3H3O3", Charge: -1, Aliases: []string{"Pyruvic acid"}},
	{ID: "cpd00036", Name: "Succinate", Formula: "C4H4O4", Charge: -2, Aliases: []string{"Succinic acid"}},
	{ID: "cpd00100", Name: "Glycerol", Formula: "C3H8O3", Charge: 0, Aliases: []string{"Glycerin"}},
	{ID: "cpd00159", Name: "L-Lactate", Formula: "C3H5O3", Charge: -1, Aliases: []string{"Lactate", "Lactic acid"}},
}

// seedReactions is a small built-in subset of the ModelSEED reaction database.
var seedReactions = []model.Reaction{
	{ID: "rxn00001", Name: "diphosphate phosphohydrolase", Equation: "cpd00001 + cpd00012 => (2) cpd00009", Reversibility: ">", DeltaG: -5.1},
	{ID: "rxn00148", Name: "pyruvate kinase", Equation: "cpd00008 + cpd00061 => cpd00002 + cpd00020", Reversibility: ">", DeltaG: -7.5},
	{ID: "rxn00200", Name: "hexokinase (D-glucose)", Equation: "cpd00002 + cpd00027 => cpd00008 + cpd00079", Reversibility: ">", DeltaG: -4.0},
	{ID: "rxn00216", Name: "citrate synthase", Equation: "cpd00022 + cpd00032 + cpd00001 => cpd00137 + cpd00010", Reversibility: ">", DeltaG: -9.0},
	{ID: "rxn00248", Name: "malate dehydrogenase", Equation: "cpd00130 + cpd00003 <=> cpd00032 + cpd00004", Reversibility: "=", DeltaG: 6.8},
	{ID: "rxn00459", Name: "succinate dehydrogenase", Equation: "cpd00036 + cpd00015 <=> cpd00106 + cpd00982", Reversibility: "=", DeltaG: 0.2},
	{ID: "rxn05145", Name: "glucose transport via PTS", Equation: "cpd00027[e] + cpd00061 => cpd00079 + cpd00020", Reversibility: ">", DeltaG: -8.2},
	{ID: "rxn05319", Name: "water transport", Equation: "cpd00001[e] <=> cpd00001", Reversibility: "=", DeltaG: 0},
	{ID: "rxn08173", Name: "ATP synthase", Equation: "cpd00008 + cpd00009 + (4) cpd00067[e] <=> cpd00002 + cpd00001 + (3) cpd00067", Reversibility: "=", DeltaG: 3.5},
	{ID: "rxn09694", Name: "O2 transport", Equation: "cpd00007[e] <=> cpd00007", Reversibility: "=", DeltaG: 0},
	{ID: "rxn10042", Name: "NADH dehydrogenase", Equation: "cpd00004 + cpd15560 + (4) cpd00067 => cpd00003 + cpd15561 + (3) cpd00067[e]", Reversibility: ">", DeltaG: -16.4},
	{ID: "rxn13782", Name: "biomass objective", Equation: "biomass components => cpd11416", Reversibility: ">", DeltaG: 0},
}

// seedIfEmpty loads the built-in biochemistry subset when the compounds
// table has no rows.
func (d *DB) seedIfEmpty() error {
	var count int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM compounds").Scan(&count); err != nil {
		return fmt.Errorf("count compounds: %w", err)
	}
	if count > 0 {
		return nil
	}

	for i := range seedCompounds {
		if err := d.InsertCompound(&seedCompounds[i]); err != nil {
			return err
		}
	}
	for i := range seedReactions {
		if err := d.InsertReaction(&seedReactions[i]); err != nil {
			return err
		}
	}
	return nil
}

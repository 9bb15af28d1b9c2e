package cli

import (
	"github.com/lyzr/recipes/common/validation"
	"github.com/spf13/cobra"
)

// NewRulesCommand creates the rules command.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules [expr...]",
		Short: "Compile ingredient rules and optionally evaluate one line",
		Long: `Compile CEL ingredient rules the way the recipes service does for
INGREDIENT_RULES. Without arguments the built-in rules are used.
Expressions see name (string), amount (double) and unit (string).

Pass --name to evaluate a single ingredient line against the rules.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(rootOpts, cmd, args)
		},
	}

	cmd.Flags().String("name", "", "ingredient name to evaluate")
	cmd.Flags().Float64("amount", 0, "ingredient amount to evaluate")
	cmd.Flags().String("unit", "", "ingredient unit to evaluate")

	return cmd
}

func runRules(opts *RootOptions, cmd *cobra.Command, exprs []string) error {
	formatter := opts.formatter(cmd)

	rules, err := validation.NewIngredientRules(exprs)
	if err != nil {
		return WrapExitError(ExitCommandError, "compile rules", err)
	}

	if cmd.Flags().Changed("name") {
		name, _ := cmd.Flags().GetString("name")
		amount, _ := cmd.Flags().GetFloat64("amount")
		unit, _ := cmd.Flags().GetString("unit")

		formatter.VerboseLog("evaluating name=%q amount=%v unit=%q", name, amount, unit)
		if err := rules.Validate(name, amount, unit); err != nil {
			return WrapExitError(ExitFailure, "line rejected", err)
		}
	}

	return formatter.Rules(rules.Exprs())
}

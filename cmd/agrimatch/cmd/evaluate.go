package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agrimatch/agrimatch/internal/engine"
	"github.com/agrimatch/agrimatch/internal/types"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a rule set against a dataset from local JSON files",
	Long:  `Runs one offline evaluation with no database or network access and prints the result JSON to stdout.`,
	RunE:  runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().String("rules", "", "path to rule set JSON ({\"all\": [...]})")
	evaluateCmd.Flags().String("dataset", "", "path to dataset JSON ({\"users\": [...], ...})")
	evaluateCmd.MarkFlagRequired("rules")
	evaluateCmd.MarkFlagRequired("dataset")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	rulesPath, _ := cmd.Flags().GetString("rules")
	datasetPath, _ := cmd.Flags().GetString("dataset")

	var ruleSet types.RuleSet
	if err := readJSON(rulesPath, &ruleSet); err != nil {
		return fmt.Errorf("failed to read rule set: %w", err)
	}
	if len(ruleSet.All) > types.MaxRuleCount {
		return types.ErrTooManyRules
	}

	var dataset types.Dataset
	if err := readJSON(datasetPath, &dataset); err != nil {
		return fmt.Errorf("failed to read dataset: %w", err)
	}

	result := engine.Evaluate(ruleSet, dataset)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	return nil
}

func readJSON(path string, dest any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

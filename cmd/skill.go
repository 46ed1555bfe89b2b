package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/neoromantic/telegram-sync-cli/internal/apperror"
)

var skillCmd = &cobra.Command{
	Use:   "skill",
	Short: "Inspect the optional AI agent manifest (skill.json)",
}

// skillManifest is the minimal shape skill.json is expected to carry
// (spec §6: "skill.json (optional) — AI agent manifest").
type skillManifest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Commands    []string `json:"commands"`
}

func readSkillManifest() (skillManifest, error) {
	var m skillManifest
	data, err := os.ReadFile(cfg.Paths.SkillJSONPath())
	if err != nil {
		if os.IsNotExist(err) {
			return m, apperror.New(apperror.CodeGeneral, "skill.json not found")
		}
		return m, apperror.Wrap(apperror.CodeGeneral, "reading skill.json", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, apperror.Wrap(apperror.CodeInvalidArgs, "skill.json is not valid JSON", err)
	}
	return m, nil
}

var skillManifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Print the skill.json manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := readSkillManifest()
		if err != nil {
			return err
		}
		printResult(m)
		return nil
	},
}

var skillValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate skill.json against the required manifest fields",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := readSkillManifest()
		if err != nil {
			return err
		}
		if m.Name == "" {
			return apperror.New(apperror.CodeInvalidArgs, "skill.json missing required field: name")
		}
		printResult(map[string]any{"valid": true})
		return nil
	},
}

// skillInstallCmd registers the manifest with an agent runtime, which is
// an external collaborator this core does not implement (spec §1).
var skillInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Register the manifest with an agent runtime",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := readSkillManifest(); err != nil {
			return err
		}
		return apperror.New(apperror.CodeGeneral, "no agent runtime configured to install into")
	},
}

func init() {
	rootCmd.AddCommand(skillCmd)
	skillCmd.AddCommand(skillManifestCmd, skillValidateCmd, skillInstallCmd)
}

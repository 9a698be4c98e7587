package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/neo/personasim/internal/persona"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const envTemplate = `# OpenAI API Key (required for simulate)
OPENAI_API_KEY=your_key_here
OPENAI_MODEL=gpt-4o-mini
RECOMMENDATION_MODEL=gpt-4
# openai or langchain
REASONING_BACKEND=openai
# client-side limit on completion calls per second, 0 for none
OPENAI_RPS=0

# Remote datastore (optional; sqlite and CSV are used when unset)
SUPABASE_URL=
SUPABASE_KEY=
SUPABASE_TABLE=persona_responses_duplicate

# Local storage
DATABASE_PATH=data/personasim.db
OUTPUT_DIR=output
PERSONAS_PATH=personas.yaml

# Simulation
MAX_ITERATIONS=10
TARGET_RATING=0.8

# Server and logging
PORT=8080
APP_ENV=development
LOG_LEVEL=INFO
`

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create working directories, a .env template and an example persona file",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Initializing personasim...")

		dirs := []string{filepath.Dir(cfg.DatabasePath), cfg.OutputDir, "logs"}
		for _, dir := range dirs {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("error creating directory %s: %w", dir, err)
			}
			fmt.Fprintf(out, "✓ Created directory: %s\n", dir)
		}

		wrote, err := writeIfMissing(".env", []byte(envTemplate), initForce)
		if err != nil {
			return fmt.Errorf("error creating .env template: %w", err)
		}
		if wrote {
			fmt.Fprintln(out, "✓ Created .env template file")
		}

		example, err := examplePersonas()
		if err != nil {
			return err
		}
		wrote, err = writeIfMissing("personas.yaml", example, initForce)
		if err != nil {
			return fmt.Errorf("error creating persona file: %w", err)
		}
		if wrote {
			fmt.Fprintln(out, "✓ Created personas.yaml with the built-in persona")
		}

		fmt.Fprintln(out, "\nInitialization complete!")
		fmt.Fprintln(out, "\nNext steps:")
		fmt.Fprintln(out, "1. Edit .env and set OPENAI_API_KEY")
		fmt.Fprintln(out, "2. Run a simulation:       personasim simulate -p personas.yaml")
		fmt.Fprintln(out, "3. Or generate a dataset:  personasim synthesize --seed 42")
		fmt.Fprintln(out, "4. Browse results:         personasim serve")
		return nil
	},
}

// writeIfMissing writes data to path unless it exists and force is false.
func writeIfMissing(path string, data []byte, force bool) (bool, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return false, err
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, err
	}
	return true, nil
}

func examplePersonas() ([]byte, error) {
	p := persona.Default()
	doc := []map[string]interface{}{{
		"persona":       p.Attributes,
		"articles_read": []map[string]string{},
	}}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode example persona: %w", err)
	}
	return data, nil
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing files")
}

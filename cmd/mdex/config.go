package cmd

import (
	"fmt"

	"github.com/kerbaras/mdex/pkg/config"
	"github.com/kerbaras/mdex/pkg/where"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: fmt.Sprintf(`Show every setting with its current value and the environment variable
overriding it. Settings are read from %s.toml in the config directory.`, config.FileName),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if path := viper.ConfigFileUsed(); path != "" {
			fmt.Printf("config file: %s\n", path)
		} else {
			fmt.Printf("config directory: %s (no %s.toml)\n", where.Config(), config.FileName)
		}

		showEnv, _ := cmd.Flags().GetBool("env")
		rows := make([][]string, 0, len(config.Keys))
		for _, key := range config.Keys {
			field := config.Default[key]
			row := []string{key, orDash(field.Current())}
			if showEnv {
				row = append(row, field.Env())
			} else {
				row = append(row, field.Description)
			}
			rows = append(rows, row)
		}
		third := "Description"
		if showEnv {
			third = "Environment"
		}
		printTable([]string{"Key", "Value", third}, rows)
		return nil
	},
}

func init() {
	configCmd.Flags().Bool("env", false, "Show environment variable names instead of descriptions")
}

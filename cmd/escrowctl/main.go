// Command escrowctl is the admin CLI for the escrow engines' HTTP
// surface, grounded on DevMarc16-Quantum-Proof-Blockchain's cobra root
// command + persistent-flag idiom (bound through viper so every flag
// also reads from an ESCROWCTL_ env var), but driving HTTP requests
// against internal/api's admin routes instead of an in-process node.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	addr  string
	token string
)

var rootCmd = &cobra.Command{
	Use:   "escrowctl",
	Short: "Admin CLI for the escrow engine HTTP surface",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "http://localhost:8080", "escrow-engine API base address")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "admin bearer token")
	viper.BindPFlag("addr", rootCmd.PersistentFlags().Lookup("addr"))
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
	viper.SetEnvPrefix("ESCROWCTL")
	viper.AutomaticEnv()

	rootCmd.AddCommand(pauseBountyCmd(), pauseProgramCmd(), resetCircuitCmd(), upgradeCmd())
}

func resolvedAddr() string {
	if v := viper.GetString("addr"); v != "" {
		return v
	}
	return addr
}

func resolvedToken() string {
	if v := viper.GetString("token"); v != "" {
		return v
	}
	return token
}

func postJSON(path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, resolvedAddr()+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+resolvedToken())

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("escrowctl: %s -> %s: %s", path, resp.Status, string(out))
	}
	fmt.Println(string(out))
	return nil
}

func pauseBountyCmd() *cobra.Command {
	var lock, release, refund bool
	var setLock, setRelease, setRefund bool
	cmd := &cobra.Command{
		Use:   "pause-bounty",
		Short: "Set the bounty engine's pause flags",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{}
			if setLock {
				body["lock"] = lock
			}
			if setRelease {
				body["release"] = release
			}
			if setRefund {
				body["refund"] = refund
			}
			return postJSON("/admin/bounty/pause", body)
		},
	}
	cmd.Flags().BoolVar(&lock, "lock", false, "lock_funds paused state")
	cmd.Flags().BoolVar(&release, "release", false, "release_funds paused state")
	cmd.Flags().BoolVar(&refund, "refund", false, "refund paused state")
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		setLock = cmd.Flags().Changed("lock")
		setRelease = cmd.Flags().Changed("release")
		setRefund = cmd.Flags().Changed("refund")
	}
	return cmd
}

func pauseProgramCmd() *cobra.Command {
	var lock, release, refund bool
	var setLock, setRelease, setRefund bool
	cmd := &cobra.Command{
		Use:   "pause-program",
		Short: "Set the program engine's pause flags",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{}
			if setLock {
				body["lock"] = lock
			}
			if setRelease {
				body["release"] = release
			}
			if setRefund {
				body["refund"] = refund
			}
			return postJSON("/admin/program/pause", body)
		},
	}
	cmd.Flags().BoolVar(&lock, "lock", false, "lock paused state")
	cmd.Flags().BoolVar(&release, "release", false, "payout paused state")
	cmd.Flags().BoolVar(&refund, "refund", false, "unused for programs, accepted for symmetry")
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		setLock = cmd.Flags().Changed("lock")
		setRelease = cmd.Flags().Changed("release")
		setRefund = cmd.Flags().Changed("refund")
	}
	return cmd
}

func resetCircuitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-circuit",
		Short: "Reset the program engine's circuit breaker Open->HalfOpen",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postJSON("/admin/program/circuit/reset", map[string]any{})
		},
	}
}

func upgradeCmd() *cobra.Command {
	var newHash string
	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Record a new active contract hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postJSON("/admin/upgrade", map[string]any{"new_hash": newHash})
		},
	}
	cmd.Flags().StringVar(&newHash, "hash", "", "new contract hash")
	cmd.MarkFlagRequired("hash")
	return cmd
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

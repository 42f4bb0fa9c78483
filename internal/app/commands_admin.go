package app

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/agis/mocal/internal/contract"
	"github.com/agis/mocal/internal/output"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flagBool(cmd, "json") || flagBool(cmd, "jsonl") {
				p := output.Printer{Mode: output.ModeJSON, Command: "version", Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()}
				if flagBool(cmd, "jsonl") {
					p.Mode = output.ModeJSONL
				}
				return p.Success(CurrentBuildInfo(), nil, nil)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "mocal %s\n", BuildVersionString())
			return err
		},
	}
}

func newDoctorCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the event database opens and has its schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, st, ro, err := buildContext(cmd, opts, "doctor")
			if err != nil {
				return err
			}
			defer st.Close()
			ctx, cancel := commandContext(ro)
			defer cancel()
			checks, derr := callStore(ctx, "store.doctor", st.Doctor)
			reasonCodes := deriveDegradedReasonCodes(checks, derr)
			ready := derr == nil && len(reasonCodes) == 0
			meta := map[string]any{
				"count":                 len(checks),
				"ready":                 ready,
				"db":                    ro.DB,
				"degraded_reason_codes": reasonCodes,
			}
			if p.EffectiveSuccessMode() == output.ModePlain {
				_ = printDoctorPlain(cmd.OutOrStdout(), ro.DB, checks, ready, reasonCodes)
			} else {
				_ = successWithMeta(ctx, p, ro, checks, meta, nil)
			}
			if derr != nil {
				ro.log.Warn("doctor failed", "db", ro.DB, "err", derr)
				_ = p.Error(contract.ErrStoreUnavailable, derr.Error(), "Check --db path permissions or remove a corrupt database file")
				return WrapPrinted(exitStoreUnavailable, derr)
			}
			if !ready {
				return Wrap(exitStoreUnavailable, fmt.Errorf("doctor checks not ready"))
			}
			return nil
		},
	}
}

func newTypesCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List event categories with their labels and icons",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, st, ro, err := buildContext(cmd, opts, "types")
			if err != nil {
				return err
			}
			defer st.Close()
			rows := contract.EventTypeRows()
			ctx, cancel := commandContext(ro)
			defer cancel()
			return successWithMeta(ctx, p, ro, rows, map[string]any{"count": len(rows)}, nil)
		},
	}
}

func newCompletionCmd(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "completion <bash|zsh|fish|powershell>",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shell := strings.ToLower(args[0])
			switch shell {
			case "bash":
				return root.GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return root.GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return root.GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return root.GenPowerShellCompletion(cmd.OutOrStdout())
			default:
				return Wrap(exitUsage, fmt.Errorf("unsupported shell: %s", shell))
			}
		},
	}
}

func deriveDegradedReasonCodes(checks []contract.DoctorCheck, derr error) []string {
	codeSet := map[string]struct{}{}
	for _, c := range checks {
		status := strings.ToLower(strings.TrimSpace(c.Status))
		if status == "" || status == contract.CheckOK || status == "pass" {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(c.Name))
		name = strings.ReplaceAll(name, " ", "_")
		name = strings.ReplaceAll(name, "-", "_")
		if name == "" {
			name = "unknown_check"
		}
		codeSet[name+"_fail"] = struct{}{}
	}
	if derr != nil {
		codeSet["doctor_error"] = struct{}{}
	}
	if len(codeSet) == 0 {
		return nil
	}
	out := make([]string, 0, len(codeSet))
	for code := range codeSet {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func printDoctorPlain(out io.Writer, db string, checks []contract.DoctorCheck, ready bool, reasonCodes []string) error {
	_, _ = fmt.Fprintf(out, "ready=%t db=%s checks=%d\n", ready, db, len(checks))
	if len(reasonCodes) > 0 {
		_, _ = fmt.Fprintf(out, "reasons=%s\n", strings.Join(reasonCodes, ","))
	}
	for _, c := range checks {
		_, _ = fmt.Fprintf(out, "[%s] %s: %s\n", c.Status, c.Name, c.Message)
	}
	return nil
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mefistotelis/lvrsrc-go/vi"
)

var (
	passwordSet     string
	passwordOut     string
	passwordTimeout time.Duration
)

var passwordCmd = &cobra.Command{
	Use:   "password <rsrc-file>",
	Short: "Inspect or change the block diagram password",
	Long: `Show the password record of an RSRC file and verify its hash chain,
recovering the salt by interface scan or brute force when needed.

With --set, the password is replaced, the hash chain recomputed, and
the result written to the --write path (or back to the input file).`,
	Args: cobra.ExactArgs(1),
	RunE: runPassword,
}

func init() {
	passwordCmd.Flags().StringVar(&passwordSet, "set", "", "set a new password")
	passwordCmd.Flags().StringVar(&passwordOut, "write", "", "path for the modified file (default: input path)")
	passwordCmd.Flags().DurationVar(&passwordTimeout, "timeout", 0, "bound for the brute-force salt scan (0 = none)")
}

func runPassword(cmd *cobra.Command, args []string) error {
	var opts []vi.Option
	if passwordTimeout > 0 {
		opts = append(opts, vi.WithBruteForceTimeout(passwordTimeout))
	}
	f, err := vi.Open(args[0], opts...)
	if err != nil {
		return err
	}
	defer f.Close()

	if passwordSet != "" || cmd.Flags().Changed("set") {
		if err := f.SetPassword(passwordSet); err != nil {
			return err
		}
		out := passwordOut
		if out == "" {
			out = args[0]
		}
		if err := f.Save(out); err != nil {
			return err
		}
		fmt.Fprintf(output, "Password updated, wrote %s\n", out)
		printWarnings(f)
		return nil
	}

	rec, err := f.PasswordRecord()
	if err != nil {
		return err
	}
	if rec.Recognized {
		fmt.Fprintf(output, "Password: %q\n", rec.Password)
	} else {
		fmt.Fprintf(output, "Password MD5: %x\n", rec.PasswordMD5)
	}
	fmt.Fprintf(output, "Hash 1: %x\n", rec.Hash1)
	fmt.Fprintf(output, "Hash 2: %x\n", rec.Hash2)

	ok, err := f.VerifyPassword()
	if err != nil {
		return err
	}
	fmt.Fprintf(output, "Hash chain consistent: %v\n", ok)
	if rec.SaltIface >= 0 {
		fmt.Fprintf(output, "Salt source: interface descriptor %d\n", rec.SaltIface)
	} else if rec.Salt != nil {
		fmt.Fprintf(output, "Salt: %x\n", rec.Salt)
	}
	printWarnings(f)
	return nil
}

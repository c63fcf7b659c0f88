// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/imprint-io/imprint/registry"
	"github.com/spf13/cobra"
)

func flagCommand() *cobra.Command {
	var stake uint64
	var payer string
	cmd := &cobra.Command{
		Use:   "flag [image file or fingerprint] [description]",
		Short: "File an immutable misuse report against registered content",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := commonRun()
			rt, err := openRuntime(logger)
			if err != nil {
				return err
			}
			defer rt.Close()
			fp, err := resolveFingerprint(args[0])
			if err != nil {
				return err
			}
			if stake == 0 {
				stake = rt.cfg.MinFlagStake
			}
			result, err := rt.verifier.FlagMisuse(
				cmd.Context(),
				fp,
				args[1],
				registry.Stake{Payer: payer, Amount: stake},
			)
			if err != nil {
				return err
			}
			fmt.Printf("flag index: %d\n", result.Index)
			fmt.Printf("commit id:  %s\n", result.CommitId)
			return nil
		},
	}
	cmd.Flags().
		Uint64Var(&stake, "stake", 0, "stake amount (default: configured minimum)")
	cmd.Flags().StringVar(&payer, "payer", "", "stake payer identity")
	return cmd
}

func getFlagCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "getflag [fingerprint] [index]",
		Short: "Retrieve a specific misuse report",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := commonRun()
			rt, err := openRuntime(logger)
			if err != nil {
				return err
			}
			defer rt.Close()
			fp, err := resolveFingerprint(args[0])
			if err != nil {
				return err
			}
			index, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid flag index %q: %w", args[1], err)
			}
			flag, err := rt.store.GetFlag(cmd.Context(), fp, index)
			if err != nil {
				return err
			}
			fmt.Printf("description: %s\n", flag.Description)
			fmt.Printf(
				"filed at:    %s\n",
				time.Unix(flag.FiledAt, 0).UTC().
					Format("2006-01-02 15:04:05 UTC"),
			)
			return nil
		},
	}
}

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
	"time"

	"github.com/spf13/cobra"
)

func verifyCommand() *cobra.Command {
	var withChain bool
	var similar bool
	cmd := &cobra.Command{
		Use:   "verify [image file or fingerprint]",
		Short: "Look up a fingerprint's origin record on the ledger",
		Args:  cobra.ExactArgs(1),
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
			result, err := rt.verifier.VerifyWithChain(cmd.Context(), fp)
			if err != nil {
				return err
			}
			if !result.Found {
				fmt.Printf("no registration found for %s\n", fp.String())
				if similar {
					return printSimilar(cmd, rt, fp)
				}
				return nil
			}
			record := result.Record
			fmt.Printf("fingerprint:   %s\n", record.Fingerprint)
			fmt.Printf("creator:       %s\n", record.CreatorName)
			fmt.Printf("identity:      %s\n", record.CreatorIdentity)
			fmt.Printf("platform:      %s\n", record.Platform)
			fmt.Printf(
				"registered:    %s\n",
				time.Unix(record.RegisteredAt, 0).UTC().
					Format("2006-01-02 15:04:05 UTC"),
			)
			fmt.Printf("credential id: %d\n", record.CredentialId)
			fmt.Printf("flag count:    %d\n", record.FlagCount)
			fmt.Printf("modification:  %t\n", result.IsModification)
			if withChain && len(result.Chain) > 0 {
				fmt.Println("provenance chain (oldest first):")
				for i, step := range result.Chain {
					printChainStep(i, step)
				}
			}
			if similar {
				return printSimilar(cmd, rt, fp)
			}
			return nil
		},
	}
	cmd.Flags().
		BoolVar(&withChain, "chain", false, "include the provenance chain")
	cmd.Flags().
		BoolVar(&similar, "similar", false, "search for near-duplicate registrations")
	return cmd
}

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

	"github.com/imprint-io/imprint/fingerprint"
	"github.com/imprint-io/imprint/provenance"
	"github.com/spf13/cobra"
)

func chainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chain [image file or fingerprint]",
		Short: "Reconstruct a fingerprint's derivation history",
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
			chain, err := rt.walker.BuildChain(cmd.Context(), fp)
			if err != nil {
				return err
			}
			if len(chain) == 0 {
				fmt.Printf("no registration found for %s\n", fp.String())
				return nil
			}
			for i, step := range chain {
				printChainStep(i, step)
			}
			return nil
		},
	}
}

func printChainStep(i int, step provenance.ChainStep) {
	role := "morph"
	if step.IsOriginal {
		role = "original"
	}
	line := fmt.Sprintf(
		"  %d. [%s] %s by %s at %s",
		i+1,
		role,
		step.Fingerprint,
		step.CreatorName,
		time.Unix(step.RegisteredAt, 0).UTC().
			Format("2006-01-02 15:04:05 UTC"),
	)
	if step.DerivedBy != "" {
		line += fmt.Sprintf(" (derived by %s)", step.DerivedBy)
	}
	fmt.Println(line)
}

func printSimilar(
	cmd *cobra.Command,
	rt *runtime,
	fp fingerprint.Fingerprint,
) error {
	matches, err := rt.verifier.FindSimilar(cmd.Context(), fp, 0)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Println("no similar registrations found")
		return nil
	}
	fmt.Println("similar registrations:")
	for _, match := range matches {
		fmt.Printf(
			"  %s (distance %d)\n",
			match.Fingerprint.String(),
			match.Distance,
		)
	}
	return nil
}

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
	"errors"
	"fmt"
	"os"

	"github.com/imprint-io/imprint/registry"
	"github.com/imprint-io/imprint/verifier"
	"github.com/spf13/cobra"
)

func registerCommand() *cobra.Command {
	var creatorName string
	var creatorIdentity string
	var platform string
	var parent string
	var derivedBy string
	var stake uint64
	cmd := &cobra.Command{
		Use:   "register [image file]",
		Short: "Register an image's fingerprint on the provenance ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := commonRun()
			rt, err := openRuntime(logger)
			if err != nil {
				return err
			}
			defer rt.Close()
			imageBytes, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if stake == 0 {
				stake = rt.cfg.MinRegisterStake
			}
			if platform == "" {
				platform = rt.cfg.PlatformName
			}
			result, err := rt.verifier.RegisterImage(
				cmd.Context(),
				imageBytes,
				verifier.RegisterImageParams{
					CreatorName:       creatorName,
					CreatorIdentity:   creatorIdentity,
					Platform:          platform,
					ParentFingerprint: parent,
					DerivedBy:         derivedBy,
				},
				registry.Stake{
					Payer:  creatorIdentity,
					Amount: stake,
				},
			)
			if err != nil {
				if errors.Is(err, registry.ErrDuplicateFingerprint) {
					// Already certified is not a failure for the end user
					fmt.Println("already registered")
					return nil
				}
				return err
			}
			for _, match := range result.NearMatches {
				fmt.Printf(
					"warning: similar to registered content %s (distance %d)\n",
					match.Fingerprint.String(),
					match.Distance,
				)
			}
			fmt.Printf("fingerprint:   %s\n", result.Fingerprint.String())
			fmt.Printf("credential id: %d\n", result.CredentialId)
			fmt.Printf("commit id:     %s\n", result.CommitId)
			return nil
		},
	}
	cmd.Flags().StringVar(&creatorName, "creator", "", "creator display name")
	cmd.Flags().
		StringVar(&creatorIdentity, "identity", "", "creator ledger identity")
	cmd.Flags().StringVar(&platform, "platform", "", "originating platform tag")
	cmd.Flags().
		StringVar(&parent, "parent", "", "fingerprint this image derives from")
	cmd.Flags().
		StringVar(&derivedBy, "derived-by", "", "who performed the derivation")
	cmd.Flags().
		Uint64Var(&stake, "stake", 0, "stake amount (default: configured minimum)")
	_ = cmd.MarkFlagRequired("creator")
	_ = cmd.MarkFlagRequired("identity")
	return cmd
}

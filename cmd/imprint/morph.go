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
	"os"

	"github.com/imprint-io/imprint/fingerprint"
	"github.com/spf13/cobra"
)

func morphCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "morph [image file] [kind]",
		Short: "Apply a derivation transform to an image",
		Long: "Apply a derivation transform (brightness, contrast, crop, " +
			"resize, recompress) to an image, producing a derivative " +
			"suitable for registering with --parent",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			commonRun()
			imageBytes, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			morphed, err := fingerprint.Morph(
				imageBytes,
				fingerprint.MorphKind(args[1]),
			)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, morphed, 0o644); err != nil {
				return err
			}
			origFp, err := fingerprint.Compute(imageBytes)
			if err != nil {
				return err
			}
			morphedFp, err := fingerprint.Compute(morphed)
			if err != nil {
				return err
			}
			fmt.Printf("original fingerprint: %s\n", origFp.String())
			fmt.Printf("morphed fingerprint:  %s\n", morphedFp.String())
			fmt.Printf(
				"hamming distance:     %d\n",
				fingerprint.Distance(origFp, morphedFp),
			)
			return nil
		},
	}
	cmd.Flags().
		StringVarP(&output, "output", "o", "morphed.jpg", "output file path")
	return cmd
}

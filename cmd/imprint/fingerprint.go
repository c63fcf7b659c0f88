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

func fingerprintCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint [image file]",
		Short: "Compute the perceptual hash of an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			commonRun()
			imageBytes, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			fp, err := fingerprint.Compute(imageBytes)
			if err != nil {
				return err
			}
			fmt.Println(fp.String())
			return nil
		},
	}
}

// resolveFingerprint interprets an argument as either a 16-hex-char
// fingerprint or a path to an image file to fingerprint
func resolveFingerprint(arg string) (fingerprint.Fingerprint, error) {
	if len(arg) == fingerprint.HexLength {
		if fp, err := fingerprint.ParseFingerprint(arg); err == nil {
			return fp, nil
		}
	}
	imageBytes, err := os.ReadFile(arg)
	if err != nil {
		return 0, fmt.Errorf(
			"%q is neither a fingerprint nor a readable file: %w",
			arg,
			err,
		)
	}
	return fingerprint.Compute(imageBytes)
}

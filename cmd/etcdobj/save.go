// Copyright 2025 The axfor Authors
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

	"github.com/spf13/cobra"
)

func newSaveCmd(a *app) *cobra.Command {
	var atomic bool

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Write every entry of an example object",
		Long: `Write every entry of an example object to the store, in render order.
Without --atomic a failed write leaves the earlier writes in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			obj, err := a.object(cmd)
			if err != nil {
				return err
			}

			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.Close()

			save := s.server.Save
			if atomic {
				save = s.server.SaveAtomic
			}
			if _, err := save(cmd.Context(), obj); err != nil {
				return fmt.Errorf("save failed: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), obj)
		},
	}

	cmd.Flags().BoolVar(&atomic, "atomic", false, "Write all entries in one transaction")
	return cmd
}

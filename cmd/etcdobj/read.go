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

	"etcdobj/pkg/etcdobj"

	"github.com/spf13/cobra"
)

func newReadCmd(a *app) *cobra.Command {
	var discover bool

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Load an example object from the store",
		Long: `Load every entry of an example object from the store. Map members are
taken from --adict unless --discover lists them from the store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			obj, err := a.object(cmd)
			if err != nil {
				return err
			}

			var opts []etcdobj.Option
			if discover {
				opts = append(opts, etcdobj.WithMapDiscovery())
			}
			s, err := a.open(opts...)
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := s.server.Read(cmd.Context(), obj); err != nil {
				return fmt.Errorf("read failed: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), obj)
		},
	}

	cmd.Flags().BoolVar(&discover, "discover", false, "List map members from the store")
	return cmd
}

// cmd/client is the CLI entry-point built with Cobra.
//
// Usage:
//
//	ringkvcli set mykey "hello world"  --primary localhost:4001
//	ringkvcli get mykey                --primary localhost:4001
//	ringkvcli delete mykey             --primary localhost:4001
//	ringkvcli list-keys                --primary localhost:4001
//	ringkvcli metadata mykey           --primary localhost:4001
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ringkv/internal/client"
)

var (
	primaryAddr string
	timeout     time.Duration
)

func main() {
	root := &cobra.Command{
		Use:   "ringkvcli",
		Short: "CLI client for the ringkv distributed cache",
	}

	root.PersistentFlags().StringVarP(&primaryAddr, "primary", "p",
		"localhost:4001", "primary coordinator address")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second,
		"request timeout")

	root.AddCommand(setCmd(), getCmd(), deleteCmd(), listKeysCmd(), metadataCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a key-value pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := client.New(primaryAddr).Set(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("STORED")
			return nil
		},
	}
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Retrieve a value by key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			value, err := client.New(primaryAddr).Get(ctx, args[0])
			if err == client.ErrNotFound {
				fmt.Println("MISS")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Println(value)
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			err := client.New(primaryAddr).Delete(ctx, args[0])
			if err == client.ErrNotFound {
				fmt.Println("MISS")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Println("DELETED")
			return nil
		},
	}
}

func listKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-keys",
		Short: "List every known key and the active node set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			keys, active, err := client.New(primaryAddr).ListKeys(ctx)
			if err != nil {
				return err
			}
			prettyPrint(map[string]any{"keys": keys, "active_nodes": active})
			return nil
		},
	}
}

func metadataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metadata <key>",
		Short: "Show a key's replica list and catalog value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			resp, err := client.New(primaryAddr).KeyMetadata(ctx, args[0])
			if err != nil {
				return err
			}
			prettyPrint(resp)
			return nil
		},
	}
}

func prettyPrint(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(data))
}

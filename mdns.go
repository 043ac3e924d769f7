/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/spf13/cobra"
)

const serviceType = "_sketchbox._tcp"

func advertise(cfg *Config) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}

	info := []string{"sketchbox v" + releaseVersion, "path=" + cfg.prefix + "/sketch"}

	service, err := mdns.NewMDNSService(host, serviceType, "", "", cfg.port, nil, info)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}

	return server, nil
}

// browse reports every sketchbox server that answers within timeout.
func browse(ctx context.Context, timeout time.Duration, found func(*mdns.ServiceEntry)) error {
	entries := make(chan *mdns.ServiceEntry, 8)
	done := make(chan struct{})

	go func() {
		defer close(done)

		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			found(e)
		}
	}()

	params := mdns.DefaultParams(serviceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true

	err := mdns.QueryContext(ctx, params)
	close(entries)
	<-done

	return err
}

func newDiscoverCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List sketchbox servers on the local network.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return browse(cmd.Context(), timeout, func(e *mdns.ServiceEntry) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\thttp://%s:%d\t%v\n", e.Host, e.AddrV4, e.Port, e.InfoFields)
			})
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Second, "how long to wait for answers")

	return cmd
}

package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"notes-client/internal/di"
	"notes-client/internal/session"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Follow session events until the session ends or Ctrl+C",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, true, func(ctx context.Context, s *di.Stores) error {
				if err := requireSession(s); err != nil {
					return err
				}

				ended := make(chan struct{})
				var once sync.Once
				sub := s.Session.Subscribe(func(st session.State) {
					stamp := time.Now().Format(time.TimeOnly)
					switch {
					case st.IsAuthenticated():
						fmt.Printf("%s  session active: %s\n", stamp, st.User.DisplayName())
					default:
						once.Do(func() {
							fmt.Printf("%s  session ended (%s)\n", stamp, st.Phase)
							close(ended)
						})
					}
				})
				defer sub.Unsubscribe()

				fmt.Printf("watching session of %s\n", s.Session.State().User.DisplayName())
				select {
				case <-ctx.Done():
					return nil
				case <-ended:
					return nil
				}
			})
		},
	})
}

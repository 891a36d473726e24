package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blackmichael/connectify/internal/domain"
)

func newProfileCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "profile [user-id]",
		Short: "Show a user's profile, friends and posts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			me, err := c.app.Me()
			if err != nil {
				return err
			}
			userID := me.ID
			if len(args) == 1 {
				userID = args[0]
			}

			profile, err := c.app.LoadProfile(cmd.Context(), userID)
			if err != nil {
				return err
			}
			if c.output == "json" {
				return printJSON(c.out, profile)
			}

			printIdentity(c.out, profile.User)
			switch {
			case profile.IsSelf:
			case profile.IsFriend:
				fmt.Fprintln(c.out, "You are friends")
			default:
				fmt.Fprintln(c.out, "Not a friend")
			}
			fmt.Fprintln(c.out)
			printFriends(c.out, profile.Friends)
			fmt.Fprintln(c.out)
			printFeed(c.out, profile.Feed, c.app.Client.AssetURL)
			return nil
		},
	}
}

func newFriendsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "friends [user-id]",
		Short: "List friends; without an id, refresh and list your own",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				friends []domain.FriendRef
				err     error
			)
			if len(args) == 1 {
				friends, err = c.app.ListFriends(cmd.Context(), args[0])
			} else {
				friends, err = c.app.RefreshFriends(cmd.Context())
			}
			if err != nil {
				return err
			}

			if c.output == "json" {
				return printJSON(c.out, friends)
			}
			printFriends(c.out, friends)
			return nil
		},
	}
}

func newToggleFriendCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle-friend <user-id>",
		Short: "Add or remove a friend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]
			now, err := c.app.ToggleFriend(cmd.Context(), target)
			if err != nil {
				return err
			}

			if c.output == "json" {
				return printJSON(c.out, map[string]any{"userId": target, "friend": now})
			}
			if now {
				fmt.Fprintf(c.out, "Added %s to friends\n", target)
			} else {
				fmt.Fprintf(c.out, "Removed %s from friends\n", target)
			}
			return nil
		},
	}
}

func newFeedCmd(c *cli) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show the global feed or one user's posts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			scope := domain.GlobalScope()
			if userID != "" {
				scope = domain.UserScope(userID)
			}

			feed, err := c.app.LoadFeed(cmd.Context(), scope)
			if err != nil {
				return err
			}
			if c.output == "json" {
				return printJSON(c.out, feed)
			}
			printFeed(c.out, feed, c.app.Client.AssetURL)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Only posts by this user id")
	return cmd
}

func newPostCmd(c *cli) *cobra.Command {
	var description, picture string

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Publish a post",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var att *domain.Attachment
			if picture != "" {
				data, err := os.ReadFile(picture)
				if err != nil {
					return fmt.Errorf("read picture: %w", err)
				}
				att = &domain.Attachment{Filename: filepath.Base(picture), Data: data}
			}

			feed, err := c.app.CreatePost(cmd.Context(), description, att)
			if err != nil {
				return err
			}
			if c.output == "json" {
				return printJSON(c.out, feed)
			}
			fmt.Fprintln(c.out, "Posted")
			printFeed(c.out, feed, c.app.Client.AssetURL)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Post text")
	cmd.Flags().StringVar(&picture, "picture", "", "Image file to attach")
	return cmd
}

func newHomeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "home",
		Short: "Show your profile, friends and the global feed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			home, err := c.app.LoadHome(cmd.Context())
			if err != nil {
				return err
			}
			if c.output == "json" {
				return printJSON(c.out, home)
			}

			printIdentity(c.out, home.Me)
			fmt.Fprintln(c.out)
			printFriends(c.out, home.Friends)
			fmt.Fprintln(c.out)
			printFeed(c.out, home.Feed, c.app.Client.AssetURL)
			return nil
		},
	}
}

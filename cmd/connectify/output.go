package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/blackmichael/connectify/internal/domain"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printIdentity(w io.Writer, id domain.Identity) {
	fmt.Fprintf(w, "%s (%s)\n", id.FullName(), id.ID)
	if id.Occupation != "" || id.Location != "" {
		fmt.Fprintf(w, "%s, %s\n", id.Occupation, id.Location)
	}
	fmt.Fprintf(w, "Friends: %d  Profile views: %d  Impressions: %d\n",
		len(id.Friends), id.ViewedProfile, id.Impressions)
}

func printFriends(w io.Writer, friends []domain.FriendRef) {
	if len(friends) == 0 {
		fmt.Fprintln(w, "No friends yet")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tOCCUPATION")
	for _, f := range friends {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.ID, f.FullName(), f.Occupation)
	}
	tw.Flush()
}

func printFeed(w io.Writer, feed domain.Feed, assetURL func(string) string) {
	if len(feed) == 0 {
		fmt.Fprintln(w, "No posts")
		return
	}
	for _, p := range feed {
		fmt.Fprintf(w, "%s  %s (%s)\n", p.CreatedAt.Local().Format("2006-01-02 15:04"), p.AuthorName(), p.AuthorID)
		fmt.Fprintf(w, "  %s\n", p.Description)
		if p.PicturePath != "" {
			fmt.Fprintf(w, "  [image] %s\n", assetURL(p.PicturePath))
		}
		fmt.Fprintf(w, "  likes: %d  comments: %d\n", p.LikeCount(), len(p.Comments))
	}
}

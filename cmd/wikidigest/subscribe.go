package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/wikidigest"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Run executes the subscribe command.
func (c *SubscribeCmd) Run(deps *Dependencies) error {
	pageName := c.PageName
	if pageName == "" {
		pageName = c.PageID
	}
	sub, err := deps.Subscribers.Subscribe(deps.Ctx, c.Email, c.Name, wikidigest.Subscription{
		PageID:       c.PageID,
		PageName:     pageName,
		SubscribedAt: time.Now().UTC(),
	})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", wikidigest.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Subscribed %s to %q (%d subscriptions)\n", sub.Email, pageName, len(sub.Subscriptions))
	return nil
}

// Run executes the unsubscribe command.
func (c *UnsubscribeCmd) Run(deps *Dependencies) error {
	switch {
	case c.All && c.PageID != "":
		fmt.Fprintln(deps.Stderr, "error: pass a page ID or --all, not both")
		return wikidigest.Errorf(wikidigest.EINVALID, "page ID and --all are exclusive")
	case !c.All && c.PageID == "":
		fmt.Fprintln(deps.Stderr, "error: pass a page ID or --all")
		return wikidigest.Errorf(wikidigest.EINVALID, "page ID or --all required")
	}

	var err error
	if c.All {
		err = deps.Subscribers.UnsubscribeAll(deps.Ctx, c.Email)
	} else {
		err = deps.Subscribers.Unsubscribe(deps.Ctx, c.Email, c.PageID)
	}
	if err != nil {
		if wikidigest.ErrorCode(err) == wikidigest.ENOTFOUND {
			fmt.Fprintf(deps.Stderr, "error: %s is not subscribed. Use 'wikidigest subscribers' to list subscribers.\n", c.Email)
		} else {
			fmt.Fprintf(deps.Stderr, "error: %s\n", wikidigest.ErrorMessage(err))
		}
		return err
	}

	if c.All {
		fmt.Fprintf(deps.Stdout, "Unsubscribed %s from all pages\n", c.Email)
	} else {
		fmt.Fprintf(deps.Stdout, "Unsubscribed %s from %s\n", c.Email, c.PageID)
	}
	return nil
}

// Run executes the subscribers command.
func (c *SubscribersCmd) Run(deps *Dependencies) error {
	var (
		subs []*wikidigest.Subscriber
		err  error
	)
	if c.Page != "" {
		subs, err = deps.Subscribers.FindSubscribersForPage(deps.Ctx, c.Page)
	} else {
		subs, err = deps.Subscribers.FindSubscribers(deps.Ctx)
	}
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", wikidigest.ErrorMessage(err))
		return err
	}

	if len(subs) == 0 {
		fmt.Fprintln(deps.Stdout, "No subscribers found. Use 'wikidigest subscribe' to add one.")
		return nil
	}

	t := newTable(deps.Stdout)
	t.AppendHeader(table.Row{"Email", "Name", "Pages", "Since"})
	for _, s := range subs {
		names := make([]string, 0, len(s.Subscriptions))
		for _, sub := range s.Subscriptions {
			names = append(names, sub.PageName)
		}
		t.AppendRow(table.Row{s.Email, s.DisplayName, strings.Join(names, ", "), s.CreatedAt.Format(time.DateOnly)})
	}
	t.Render()
	return nil
}

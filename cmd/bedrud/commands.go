package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/imtaco/bedrud-client/api"
	"github.com/imtaco/bedrud-client/instances"
	"github.com/imtaco/bedrud-client/instances/manager"
	"github.com/imtaco/bedrud-client/internal/errors"
	"github.com/imtaco/bedrud-client/meetlink"
)

type command struct {
	usage   string
	minArgs int
	maxArgs int
	run     func(c *cli, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"instances": {usage: "instances", run: (*cli).listInstances},
	"health":    {usage: "health <url>", minArgs: 1, maxArgs: 1, run: (*cli).health},
	"add":       {usage: "add <url> [name]", minArgs: 1, maxArgs: 2, run: (*cli).add},
	"use":       {usage: "use <id>", minArgs: 1, maxArgs: 1, run: (*cli).use},
	"remove":    {usage: "remove <id>", minArgs: 1, maxArgs: 1, run: (*cli).remove},
	"login":     {usage: "login <email> <password>", minArgs: 2, maxArgs: 2, run: (*cli).login},
	"register":  {usage: "register <email> <password> <name>", minArgs: 3, maxArgs: 3, run: (*cli).register},
	"guest":     {usage: "guest <name>", minArgs: 1, maxArgs: 1, run: (*cli).guest},
	"logout":    {usage: "logout", run: (*cli).logout},
	"whoami":    {usage: "whoami", run: (*cli).whoami},
	"rooms":     {usage: "rooms", run: (*cli).rooms},
	"create":    {usage: "create [name]", maxArgs: 1, run: (*cli).create},
	"join":      {usage: "join <room>", minArgs: 1, maxArgs: 1, run: (*cli).join},
	"open":      {usage: "open <link> <guest name>", minArgs: 2, maxArgs: 2, run: (*cli).open},
	"parse":     {usage: "parse <link>", minArgs: 1, maxArgs: 1, run: (*cli).parse},
}

func commandHelp() string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "  %s\n", commands[name].usage)
	}
	return b.String()
}

type cli struct {
	mgr manager.Manager
	out io.Writer
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New(errors.ErrValidation, "missing command")
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return errors.Newf(errors.ErrValidation, "unknown command %q", args[0])
	}
	rest := args[1:]
	if len(rest) < cmd.minArgs || len(rest) > cmd.maxArgs {
		return errors.Newf(errors.ErrValidation, "usage: bedrud %s", cmd.usage)
	}
	return cmd.run(c, ctx, rest)
}

func (c *cli) deps() (*manager.Deps, error) {
	deps := c.mgr.Deps()
	if deps == nil {
		return nil, errors.New(instances.ErrNoInstance, "add a server first")
	}
	return deps, nil
}

func (c *cli) listInstances(_ context.Context, _ []string) error {
	active := c.mgr.Active()
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\tID\tNAME\tSERVER\tADDED")
	for _, inst := range c.mgr.Instances() {
		mark := ""
		if active != nil && active.ID == inst.ID {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			mark, inst.ID, inst.DisplayName, inst.ServerURL, inst.AddedAt.Format("2006-01-02"))
	}
	return w.Flush()
}

func (c *cli) health(ctx context.Context, args []string) error {
	resp, err := c.mgr.CheckHealth(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s %s\n", resp.Status, resp.Version)
	return nil
}

func (c *cli) add(ctx context.Context, args []string) error {
	name := ""
	if len(args) > 1 {
		name = args[1]
	}
	inst, err := c.mgr.AddInstance(ctx, args[0], name)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "added %s (%s)\n", inst.DisplayName, inst.ID)
	return nil
}

func (c *cli) use(ctx context.Context, args []string) error {
	found := false
	for _, inst := range c.mgr.Instances() {
		if inst.ID == args[0] {
			found = true
			break
		}
	}
	if !found {
		return errors.Newf(errors.ErrValidation, "unknown instance %s", args[0])
	}
	return c.mgr.SetActive(ctx, args[0])
}

func (c *cli) remove(ctx context.Context, args []string) error {
	return c.mgr.RemoveInstance(ctx, args[0])
}

func (c *cli) login(ctx context.Context, args []string) error {
	deps, err := c.deps()
	if err != nil {
		return err
	}
	user, err := deps.Auth.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "logged in as %s\n", user.Name)
	return nil
}

func (c *cli) register(ctx context.Context, args []string) error {
	deps, err := c.deps()
	if err != nil {
		return err
	}
	user, err := deps.Auth.Register(ctx, args[0], args[1], args[2])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "registered %s\n", user.Email)
	return nil
}

func (c *cli) guest(ctx context.Context, args []string) error {
	deps, err := c.deps()
	if err != nil {
		return err
	}
	user, err := deps.Auth.GuestLogin(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "guest %s\n", user.Name)
	return nil
}

func (c *cli) logout(ctx context.Context, _ []string) error {
	deps, err := c.deps()
	if err != nil {
		return err
	}
	if deps.Auth.IsAuthenticated() {
		// the server side may already have dropped the token
		_ = deps.AuthAPI.Logout(ctx)
	}
	deps.Auth.Logout(ctx)
	return nil
}

func (c *cli) whoami(ctx context.Context, _ []string) error {
	deps, err := c.deps()
	if err != nil {
		return err
	}
	if !deps.Auth.IsAuthenticated() {
		fmt.Fprintln(c.out, "not logged in")
		return nil
	}
	user, err := deps.Auth.FetchCurrentUser(ctx)
	if err != nil {
		return err
	}
	role := "user"
	if user.IsAdmin {
		role = "admin"
	}
	fmt.Fprintf(c.out, "%s <%s> %s\n", user.Name, user.Email, role)
	return nil
}

func (c *cli) rooms(ctx context.Context, _ []string) error {
	deps, err := c.deps()
	if err != nil {
		return err
	}
	rooms, err := deps.Rooms.List(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tACTIVE\tMAX\tRELATION")
	for _, r := range rooms {
		fmt.Fprintf(w, "%s\t%t\t%d\t%s\n", r.Name, r.IsActive, r.MaxParticipants, r.Relationship)
	}
	return w.Flush()
}

func (c *cli) create(ctx context.Context, args []string) error {
	deps, err := c.deps()
	if err != nil {
		return err
	}
	req := &api.CreateRoomRequest{}
	if len(args) > 0 {
		req.Name = args[0]
	}
	r, err := deps.Rooms.Create(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "created %s\n%s\n", r.Name, roomLink(deps.Instance, r.Name))
	return nil
}

func roomLink(inst *instances.Instance, name string) string {
	return strings.TrimRight(inst.ServerURL, "/") + "/m/" + name
}

func (c *cli) printJoin(resp *api.JoinRoomResponse) {
	fmt.Fprintf(c.out, "room:  %s\nhost:  %s\ntoken: %s\n", resp.Name, resp.LivekitHost, resp.Token)
}

func (c *cli) join(ctx context.Context, args []string) error {
	resp, err := c.mgr.JoinRoom(ctx, args[0])
	if err != nil {
		return err
	}
	c.printJoin(resp)
	return nil
}

func (c *cli) open(ctx context.Context, args []string) error {
	resp, err := c.mgr.GuestJoin(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	c.printJoin(resp)
	return nil
}

func (c *cli) parse(_ context.Context, args []string) error {
	link, err := meetlink.Parse(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "server: %s\nroom:   %s\n", link.ServerBaseURL, link.RoomName)
	if inst, ok := c.mgr.MatchLink(link); ok {
		fmt.Fprintf(c.out, "instance: %s (%s)\n", inst.DisplayName, inst.ID)
	}
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pushbulletnet/pushbullet/internal/pushbullet"
)

type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

type command struct {
	summary string
	run     func(ctx context.Context, c *pushbullet.Client, fs *flag.FlagSet, args []string, out io.Writer) error
}

var commands = map[string]command{
	"me":            {"show the account that owns the token", runMe},
	"devices":       {"list devices", runDevices},
	"device":        {"show one device (-iden)", runDevice},
	"pushes":        {"list pushes (-active -after -limit -cursor)", runPushes},
	"get-push":      {"show one push (-iden)", runGetPush},
	"chats":         {"list chats", runChats},
	"push":          {"send a note (-title -body [-device])", runPush},
	"create-device": {"register a device (-nickname -type -model -manufacturer)", runCreateDevice},
	"create-chat":   {"open a chat with a user (-email)", runCreateChat},
	"subscribe":     {"subscribe to a channel (-channel)", runSubscribe},
}

func printUsage(w io.Writer, global *flag.FlagSet) {
	fmt.Fprintf(w, "usage: %s [-config file] <command> [flags]\n\ncommands:\n", serviceName)

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-14s %s\n", name, commands[name].summary)
	}

	fmt.Fprintln(w, "\nflags:")
	global.PrintDefaults()
}

// execute runs the command named by args[0] against c.
func execute(ctx context.Context, c *pushbullet.Client, args []string, out, errOut io.Writer) error {
	if len(args) == 0 {
		return usagef("missing command")
	}

	name := args[0]
	cmd, ok := commands[name]
	if !ok {
		return usagef("unknown command %q", name)
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(errOut)
	return cmd.run(ctx, c, fs, args[1:], out)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func noArgs(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return usagef("%s: unexpected arguments: %s", fs.Name(), strings.Join(fs.Args(), " "))
	}
	return nil
}

func required(fs *flag.FlagSet, values map[string]string) error {
	for name, v := range values {
		if strings.TrimSpace(v) == "" {
			return usagef("%s: -%s is required", fs.Name(), name)
		}
	}
	return nil
}

func runMe(ctx context.Context, c *pushbullet.Client, fs *flag.FlagSet, args []string, out io.Writer) error {
	if err := noArgs(fs, args); err != nil {
		return err
	}
	user, err := c.GetUserData(ctx)
	if err != nil {
		return err
	}
	return writeJSON(out, user)
}

func runDevices(ctx context.Context, c *pushbullet.Client, fs *flag.FlagSet, args []string, out io.Writer) error {
	if err := noArgs(fs, args); err != nil {
		return err
	}
	devices, err := c.GetDevices(ctx)
	if err != nil {
		return err
	}
	return writeJSON(out, devices)
}

func runDevice(ctx context.Context, c *pushbullet.Client, fs *flag.FlagSet, args []string, out io.Writer) error {
	iden := fs.String("iden", "", "device iden")
	if err := noArgs(fs, args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"iden": *iden}); err != nil {
		return err
	}
	device, err := c.GetDevice(ctx, *iden)
	if err != nil {
		return err
	}
	return writeJSON(out, device)
}

func runPushes(ctx context.Context, c *pushbullet.Client, fs *flag.FlagSet, args []string, out io.Writer) error {
	active := fs.Bool("active", false, "only active pushes")
	after := fs.Float64("after", 0, "only pushes modified after this epoch timestamp")
	limit := fs.Int("limit", 0, "page size")
	cursor := fs.String("cursor", "", "cursor from a previous page")
	if err := noArgs(fs, args); err != nil {
		return err
	}

	if !*active && *after == 0 && *limit == 0 && *cursor == "" {
		pushes, err := c.GetPushes(ctx)
		if err != nil {
			return err
		}
		return writeJSON(out, pushes)
	}

	if *limit < 0 {
		return usagef("%s: -limit must be positive", fs.Name())
	}
	page, err := c.ListPushes(ctx, pushbullet.ListOptions{
		ActiveOnly:    *active,
		ModifiedAfter: *after,
		Limit:         *limit,
		Cursor:        *cursor,
	})
	if err != nil {
		return err
	}
	return writeJSON(out, page)
}

func runGetPush(ctx context.Context, c *pushbullet.Client, fs *flag.FlagSet, args []string, out io.Writer) error {
	iden := fs.String("iden", "", "push iden")
	if err := noArgs(fs, args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"iden": *iden}); err != nil {
		return err
	}
	push, err := c.GetPush(ctx, *iden)
	if err != nil {
		return err
	}
	return writeJSON(out, push)
}

func runChats(ctx context.Context, c *pushbullet.Client, fs *flag.FlagSet, args []string, out io.Writer) error {
	if err := noArgs(fs, args); err != nil {
		return err
	}
	chats, err := c.GetChats(ctx)
	if err != nil {
		return err
	}
	return writeJSON(out, chats)
}

func runPush(ctx context.Context, c *pushbullet.Client, fs *flag.FlagSet, args []string, _ io.Writer) error {
	title := fs.String("title", "", "note title")
	body := fs.String("body", "", "note body")
	device := fs.String("device", "", "target device iden (default: all devices)")
	if err := noArgs(fs, args); err != nil {
		return err
	}
	if *title == "" && *body == "" {
		return usagef("%s: -title or -body is required", fs.Name())
	}
	return c.Push(ctx, *title, *body, *device)
}

func runCreateDevice(ctx context.Context, c *pushbullet.Client, fs *flag.FlagSet, args []string, _ io.Writer) error {
	nickname := fs.String("nickname", "", "device nickname")
	deviceType := fs.String("type", "", "device type, e.g. android or stream")
	model := fs.String("model", "", "device model")
	manufacturer := fs.String("manufacturer", "", "device manufacturer")
	icon := fs.String("icon", "system", "device icon")
	if err := noArgs(fs, args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"nickname": *nickname}); err != nil {
		return err
	}
	return c.CreateDevice(ctx, &pushbullet.NewDevice{
		Nickname:     *nickname,
		Type:         *deviceType,
		Model:        *model,
		Manufacturer: *manufacturer,
		Icon:         *icon,
	})
}

func runCreateChat(ctx context.Context, c *pushbullet.Client, fs *flag.FlagSet, args []string, _ io.Writer) error {
	email := fs.String("email", "", "email of the user to chat with")
	if err := noArgs(fs, args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"email": *email}); err != nil {
		return err
	}
	return c.CreateChat(ctx, *email)
}

func runSubscribe(ctx context.Context, c *pushbullet.Client, fs *flag.FlagSet, args []string, _ io.Writer) error {
	channel := fs.String("channel", "", "channel tag")
	if err := noArgs(fs, args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"channel": *channel}); err != nil {
		return err
	}
	return c.CreateSubscription(ctx, *channel)
}

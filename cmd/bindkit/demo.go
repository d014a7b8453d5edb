package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dshills/bindkit/internal/action"
	"github.com/dshills/bindkit/internal/binding"
	"github.com/dshills/bindkit/internal/config"
	"github.com/dshills/bindkit/internal/controller"
	"github.com/dshills/bindkit/internal/logging"
	"github.com/dshills/bindkit/internal/model"
	"github.com/dshills/bindkit/internal/observable"
	"github.com/dshills/bindkit/internal/script"
	"github.com/dshills/bindkit/internal/surface"
	"github.com/dshills/bindkit/internal/watch"
)

type address struct {
	model.Base
	Street string `json:"street"`
	City   string `json:"city"`
}

func (a *address) SetStreet(s string) { model.Set(a, "street", &a.Street, s) }
func (a *address) SetCity(s string)   { model.Set(a, "city", &a.City, s) }

type person struct {
	model.Base
	Name     string                   `json:"name"`
	Address  *address                 `json:"address"`
	Friends  *observable.List[string] `json:"friends"`
	Selected string                   `json:"selected"`
}

func (p *person) SetName(s string)      { model.Set(p, "name", &p.Name, s) }
func (p *person) SetAddress(a *address) { model.Set(p, "address", &p.Address, a) }
func (p *person) SetSelected(s string)  { model.Set(p, "selected", &p.Selected, s) }

type demoOptions struct {
	scripts     []string
	follow      bool
	metricsAddr string
}

func newDemoCommand(c *cli) *cobra.Command {
	var opts demoOptions
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a headless two-way binding demonstration",
		Long: highlight("bindkit demo") + "\n\n" +
			"Binds a person and address model to headless text fields and a list,\n" +
			"then edits both sides and prints every change the watchers observe.\n" +
			"With --follow the process keeps running, reloading the configuration\n" +
			"file on change and serving metrics when enabled.\n",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.demo(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringArrayVar(&opts.scripts, "script", nil, "Lua script to load (repeatable)")
	cmd.Flags().BoolVar(&opts.follow, "follow", false, "Keep running and reload the configuration on change")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", ":9090", "Metrics listen address with --follow")
	return cmd
}

func (c *cli) demo(ctx context.Context, opts demoOptions) error {
	p := &person{
		Name:    "A",
		Address: &address{Street: "Main", City: "Springfield"},
		Friends: observable.NewList("ann", "bob"),
	}

	ctl := controller.New(p,
		controller.WithLogger(c.log.Logger),
		controller.WithDumper(c.dumper),
		controller.WithMetrics(c.metrics),
		controller.WithDefaultGroup(c.cfg.Binding.DefaultGroup),
		controller.WithOnStart(func() { c.event("start", "bindings active") }),
	)

	nameField := binding.Bind(ctl.Binder(), "name", surface.NewTextField(), "text")
	streetField := binding.Bind(ctl.Binder(), "address.street", surface.NewTextField(), "text")
	cityField := binding.Read(ctl.Binder(), "address.city", surface.NewTextField(), "text")
	summary := binding.Read(ctl.BinderNamed("summary"), "${name + ' lives on ' + address.street}", surface.NewTextField(), "text")
	friends := binding.List(ctl.Binder(), "friends", surface.NewListBox(), "selected")

	watches := []struct {
		name    string
		handler watch.Handler
		paths   []string
	}{
		{"logName", func(e watch.Event) error {
			c.event("name", "%v -> %v", e.OldValue, e.NewValue)
			return nil
		}, []string{"name"}},
		{"dumpAddress", func(e watch.Event) error {
			c.event("address", "%s = %v", e.Path, e.NewValue)
			ctl.LogObject(p.Address)
			return nil
		}, []string{"address.street", "address.city"}},
		{"logFriends", func(watch.Event) error {
			c.event("friends", "%s", strings.Join(p.Friends.Items(), ", "))
			return nil
		}, []string{"friends"}},
		{"logSelection", func(e watch.Event) error {
			c.event("selected", "%v", e.NewValue)
			return nil
		}, []string{"selected"}},
	}
	for _, w := range watches {
		if err := ctl.Watch(w.name, w.handler, w.paths...); err != nil {
			return err
		}
	}

	actions := ctl.Actions()
	if err := actions.Register("shout", func(action.Event) error {
		p.SetName(strings.ToUpper(p.Name) + "!")
		return nil
	}, action.WithIcon("megaphone")); err != nil {
		return err
	}
	if err := actions.Register("addFriend", func(ev action.Event) error {
		drop := ev.Native.(action.DropEvent)
		p.Friends.Append(strings.TrimSpace(drop.Data))
		return nil
	}); err != nil {
		return err
	}
	mouse := action.NewMouseAdapter(actions, nameField, action.Rect{Width: 20, Height: 1}).
		On(action.MouseClicked, "shout")
	drop := action.NewDropAdapter(actions, friends).
		On(action.Drop, "addFriend").
		IfTransferable(func(data string) bool { return strings.TrimSpace(data) != "" })

	engine := script.New(p,
		script.WithLogger(c.log.WithName("script")),
		script.WithWatcher(ctl.Watches()),
		script.WithActions(actions),
	)
	defer engine.Close()
	for _, path := range append(append([]string(nil), c.cfg.Scripts...), opts.scripts...) {
		if err := engine.DoFile(path); err != nil {
			return err
		}
	}

	if err := ctl.Start(true); err != nil {
		return err
	}
	defer ctl.Stop()

	c.event("field", "name=%q street=%q city=%q", nameField.Text(), streetField.Text(), cityField.Text())

	nameField.Type("B")
	p.Address.SetStreet("Elm")
	p.Address.SetCity("Shelbyville")

	_, _ = mouse.Handle(tcell.NewEventMouse(2, 0, tcell.ButtonPrimary, tcell.ModNone))
	_, _ = mouse.Handle(tcell.NewEventMouse(2, 0, tcell.ButtonNone, tcell.ModNone))

	_, _, _ = drop.Handle(tcell.NewEventPaste(true))
	for _, r := range "carol" {
		_, _, _ = drop.Handle(tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone))
	}
	_, _, _ = drop.Handle(tcell.NewEventPaste(false))

	if err := friends.Select(2); err != nil {
		return err
	}

	p.SetAddress(&address{Street: "Oak", City: "Capital City"})
	streetField.Type("Pine")

	c.event("field", "name=%q street=%q city=%q", nameField.Text(), streetField.Text(), cityField.Text())
	c.event("summary", "%s", summary.Text())
	c.event("list", "%v selected=%v", friends.Items(), friends.Selected())
	fmt.Fprintln(c.out, ctl.Dump(p))

	if !opts.follow {
		return nil
	}
	return c.follow(ctx, opts)
}

// follow keeps the process alive, applying configuration reloads to the
// logger and serving metrics, until interrupted.
func (c *cli) follow(ctx context.Context, opts demoOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings := config.NewSettings(c.cfg)
	ctl := controller.New(settings, controller.WithLogger(c.log.Logger))
	if err := ctl.Watch("logLevel", watch.Typed(func(e watch.TypedEvent[string]) error {
		level := logging.ParseLevel(e.NewOr("info"))
		c.log.SetLevel(level)
		c.event("config", "log level %s", level)
		return nil
	}), "log.level"); err != nil {
		return err
	}
	if err := ctl.Start(false); err != nil {
		return err
	}
	defer ctl.Stop()

	if c.configPath != "" {
		w, err := config.NewWatcher(c.configPath, settings, config.WithWatcherLogger(c.log.WithName("config")))
		if err != nil {
			return err
		}
		defer w.Close()
		c.event("config", "watching %s", w.Path())
	}

	if c.registry != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: opts.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				c.log.Error(err, "metrics server failed", "addr", opts.metricsAddr)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		c.event("metrics", "serving on %s/metrics", opts.metricsAddr)
	}

	<-ctx.Done()
	return nil
}

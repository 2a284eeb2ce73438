package main

import (
	"context"
	"strings"

	"github.com/abiosoft/ishell"
)

func runShell(ctx context.Context, target execer, banner string) {
	shell := ishell.New()
	shell.Println(banner)

	forward := func(verb string) func(c *ishell.Context) {
		return func(c *ishell.Context) {
			line := strings.TrimSpace(verb + " " + strings.Join(c.Args, " "))
			if out := target.Exec(ctx, line); out != "" {
				c.Println(out)
			}
		}
	}
	shell.AddCmd(&ishell.Cmd{
		Name: "motor",
		Help: "motor <name> go <speed|N%> [ramp_ms] | stop | coast | brake high|low | reverse on|off | coast1..4 | status",
		Func: forward("motor"),
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "list",
		Help: "list configured motors",
		Func: forward("list"),
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "commands",
		Help: "show the console command reference",
		Func: forward("help"),
	})
	shell.Start()
}

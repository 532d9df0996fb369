// Command diaryctl inspects and maintains the diary store from the shell.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"opcdiary/internal/bootstrap"
	"opcdiary/internal/config"
	"opcdiary/internal/kvstore"
	"opcdiary/internal/service"

	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Println("Usage: diaryctl [flags] <command> [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  users              List registered founders")
	fmt.Println("  delete <name>      Delete a founder, their projects and mailbox")
	fmt.Println("  track <name>       Toggle supervisor tracking of a founder")
	fmt.Println("  keys [prefix]      List stored keys and their sizes")
	fmt.Println("  usage              Show bytes used against the quota")
	fmt.Println()
	fmt.Println("Flags:")
	flagSet.PrintDefaults()
}

func run() error {
	var showValues bool
	flagSet := pflag.NewFlagSet("diaryctl", pflag.ContinueOnError)
	flagSet.BoolVarP(&showValues, "values", "v", false, "print values with keys")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help || flagSet.NArg() == 0 {
		printHelp(flagSet)
		return nil
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer rt.Close()

	directory, err := service.LoadDirectory()
	if err != nil {
		return err
	}
	svcs := service.New(rt.Repos, service.Options{Directory: directory})

	args := flagSet.Args()
	switch args[0] {
	case "users":
		return listUsers(ctx, svcs)
	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: diaryctl delete <name>")
		}
		if err := svcs.Users.Delete(ctx, service.Actor{Name: service.SupervisorName, Supervisor: true}, args[1]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[1])
	case "track":
		if len(args) < 2 {
			return fmt.Errorf("usage: diaryctl track <name>")
		}
		tracked, err := svcs.Graph.ToggleTracking(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Tracked: %s\n", strings.Join(tracked, ", "))
	case "keys":
		prefix := ""
		if len(args) > 1 {
			prefix = args[1]
		}
		return listKeys(ctx, rt.Store, prefix, showValues)
	case "usage":
		r, ok := rt.Store.(kvstore.UsageReporter)
		if !ok {
			return fmt.Errorf("store driver %s does not report usage", cfg.StoreDriver)
		}
		used, quota, err := r.Usage(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%d of %d bytes used\n", used, quota)
	default:
		printHelp(flagSet)
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}

func listUsers(ctx context.Context, svcs *service.Services) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COMPANY\tPROJECTS\tFRIENDS\tVALUATION")
	for _, u := range svcs.Users.List(ctx) {
		book := svcs.Diary.Load(ctx, u.CompanyName)
		friends := svcs.Graph.Friends(ctx, u.CompanyName)
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", u.CompanyName, len(book.Projects()), len(friends), u.Valuation)
	}
	return w.Flush()
}

func listKeys(ctx context.Context, store kvstore.Store, prefix string, showValues bool) error {
	keys, err := store.Keys(ctx, prefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		value, _, err := store.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("read %s: %w", key, err)
		}
		if showValues {
			fmt.Printf("%s\t%s\n", key, value)
			continue
		}
		fmt.Printf("%s\t%d bytes\n", key, len(value))
	}
	return nil
}

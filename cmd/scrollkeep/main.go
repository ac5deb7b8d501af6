// scrollkeep is the operator tool for the scroll registry: it bootstraps the
// data tree, manages accounts, and reports on the artifact store. It is not
// an interactive shell; every command runs to completion and exits.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/stlalpha/scrollkeep/internal/account"
	"github.com/stlalpha/scrollkeep/internal/artifact"
	"github.com/stlalpha/scrollkeep/internal/config"
	"github.com/stlalpha/scrollkeep/internal/logging"
	"github.com/stlalpha/scrollkeep/internal/seeker"
	"github.com/stlalpha/scrollkeep/internal/store"
	"github.com/stlalpha/scrollkeep/internal/util"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]
	switch cmd {
	case "init":
		cmdInit(args)
	case "adduser":
		cmdAddUser(args)
	case "upload":
		cmdUpload(args)
	case "list":
		cmdList(args)
	case "search":
		cmdSearch(args)
	case "preview":
		cmdPreview(args)
	case "download":
		cmdDownload(args)
	case "stats":
		cmdStats(args)
	case "watch":
		cmdWatch(args)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: scrollkeep <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init     Create the data tree and the default admin account")
	fmt.Println("  adduser  Register a new general account")
	fmt.Println("  upload   Add a scroll from a source file")
	fmt.Println("  list     List all scrolls with sizes and counters")
	fmt.Println("  search   Filter scrolls by owner, id, name and upload date")
	fmt.Println("  preview  Show a scroll's metadata and a hex sample")
	fmt.Println("  download Copy a scroll's managed file to a target path")
	fmt.Println("  stats    Print one statistics line per scroll")
	fmt.Println("  watch    Follow the backing files and reprint stats on change")
	fmt.Println("  help     Show this help")
}

// services bundles everything a command needs.
type services struct {
	cfg       config.Config
	accounts  *account.Repository
	users     *account.Service
	artifacts *artifact.Repository
	scrolls   *artifact.Service
	seek      *seeker.Service
}

// commonFlags registers the flags every command shares.
func commonFlags(fs *flag.FlagSet) *string {
	configPath := fs.String("config", "scrollkeep.json", "Path to the config file")
	fs.BoolVar(&logging.DebugEnabled, "debug", false, "Enable debug logging")
	return configPath
}

func openServices(configPath string) (*services, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	accounts, err := account.OpenRepository(cfg.AccountsFile)
	if err != nil {
		return nil, err
	}
	users := account.NewService(accounts, account.BcryptHasher{}, cfg.ProfilePictureDir)
	if err := users.EnsureDefaultAdmin(); err != nil {
		return nil, err
	}

	artifacts, err := artifact.OpenRepository(cfg.ArtifactsFile)
	if err != nil {
		return nil, err
	}
	scrolls, err := artifact.NewService(artifacts, cfg.UploadDir)
	if err != nil {
		return nil, err
	}

	return &services{
		cfg:       cfg,
		accounts:  accounts,
		users:     users,
		artifacts: artifacts,
		scrolls:   scrolls,
		seek:      seeker.NewService(scrolls),
	}, nil
}

func cmdInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := commonFlags(fs)
	fs.Parse(args)

	svc, err := openServices(*configPath)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	fmt.Printf("Initialized. %d account(s), %d scroll(s).\n",
		svc.accounts.Len(), svc.artifacts.Len())
}

func cmdAddUser(args []string) {
	fs := flag.NewFlagSet("adduser", flag.ExitOnError)
	configPath := commonFlags(fs)
	username := fs.String("username", "", "Username for the new account")
	email := fs.String("email", "", "Email address")
	phone := fs.String("phone", "", "Phone number")
	fullName := fs.String("fullname", "", "Full name")
	customID := fs.String("customid", "", "Externally unique custom ID")
	fs.Parse(args)

	svc, err := openServices(*configPath)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}

	password, err := promptPassword("Password: ")
	if err != nil {
		log.Fatalf("ERROR: Failed to read password: %v", err)
	}
	created, err := svc.users.Register(*username, password, *email, *phone, *fullName, *customID)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	fmt.Printf("Created account %s (%s)\n", created.Username, created.CustomID)
}

// promptPassword reads a password with echo disabled when stdin is a
// terminal, falling back to a plain line read otherwise (piped input).
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func cmdUpload(args []string) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	configPath := commonFlags(fs)
	owner := fs.String("owner", "", "Username that will own the scroll")
	name := fs.String("name", "", "Scroll name (unique, case-insensitive)")
	source := fs.String("file", "", "Source file to copy into the upload area")
	fs.Parse(args)

	svc, err := openServices(*configPath)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	if _, ok := svc.accounts.FindByUsername(strings.TrimSpace(*owner)); !ok {
		log.Fatalf("ERROR: No such account: %s", *owner)
	}

	created, err := svc.scrolls.Upload(*owner, *name, *source)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	fmt.Printf("Uploaded %s as %s (%s)\n", created.Name, created.ID, created.FilePath)
}

func cmdList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := commonFlags(fs)
	owner := fs.String("owner", "", "Only list scrolls owned by this username")
	fs.Parse(args)

	svc, err := openServices(*configPath)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}

	scrolls := svc.scrolls.ListAll()
	if *owner != "" {
		scrolls = svc.scrolls.ListByOwner(*owner)
	}
	for _, a := range scrolls {
		size := int64(0)
		if info, err := os.Stat(a.FilePath); err == nil {
			size = info.Size()
		}
		fmt.Printf("%-7s %-30s %-15s %7s  up:%d dn:%d\n",
			a.ID, a.Name, a.Owner, util.FormatFileSize(size), a.UploadCount, a.DownloadCount)
	}
	fmt.Printf("%d scroll(s)\n", len(scrolls))
}

func cmdSearch(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := commonFlags(fs)
	owner := fs.String("owner", "", "Owner substring to match (case-insensitive)")
	id := fs.String("id", "", "ID substring to match (case-insensitive)")
	name := fs.String("name", "", "Name substring to match (case-insensitive)")
	dateStr := fs.String("date", "", "Upload date to match (YYYY-MM-DD)")
	fs.Parse(args)

	var date time.Time
	if *dateStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", *dateStr, time.Local)
		if err != nil {
			log.Fatalf("ERROR: Bad -date value %q: %v", *dateStr, err)
		}
		date = parsed
	}

	svc, err := openServices(*configPath)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}

	matched := svc.seek.Filter(*owner, *id, *name, date)
	for _, a := range matched {
		fmt.Printf("%-7s %-30s %-15s %s\n",
			a.ID, a.Name, a.Owner, a.UploadedAt.Format(artifact.TimeLayout))
	}
	fmt.Printf("%d match(es)\n", len(matched))
}

func cmdPreview(args []string) {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	configPath := commonFlags(fs)
	id := fs.String("id", "", "Scroll ID to preview")
	fs.Parse(args)

	svc, err := openServices(*configPath)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	a, ok := svc.seek.Find(*id)
	if !ok {
		log.Fatalf("ERROR: No such scroll: %s", *id)
	}

	preview := svc.seek.BuildPreview(a)
	fmt.Println(preview.Summary)
	fmt.Println()
	fmt.Println(preview.HexSample)
}

func cmdDownload(args []string) {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	configPath := commonFlags(fs)
	id := fs.String("id", "", "Scroll ID to download")
	target := fs.String("to", "", "Target path for the copy")
	fs.Parse(args)

	if *target == "" {
		log.Fatalf("ERROR: -to is required")
	}

	svc, err := openServices(*configPath)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	a, ok := svc.seek.Find(*id)
	if !ok {
		log.Fatalf("ERROR: No such scroll: %s", *id)
	}

	if err := svc.seek.Download(&a, *target); err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	fmt.Printf("Downloaded %s to %s (downloads: %d)\n", a.ID, *target, a.DownloadCount)
}

func cmdStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := commonFlags(fs)
	fs.Parse(args)

	svc, err := openServices(*configPath)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	for _, line := range svc.scrolls.Statistics() {
		fmt.Println(line)
	}
}

func cmdWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := commonFlags(fs)
	fs.Parse(args)

	svc, err := openServices(*configPath)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}

	accountsPath, err := filepath.Abs(svc.accounts.Path())
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}

	watcher, err := store.Watch(
		[]string{svc.accounts.Path(), svc.artifacts.Path()},
		func(path string) {
			log.Printf("INFO: Backing file changed: %s", path)
			switch path {
			case accountsPath:
				if err := svc.accounts.Reload(); err != nil {
					log.Printf("ERROR: Failed to reload accounts: %v", err)
					return
				}
			default:
				if err := svc.artifacts.Reload(); err != nil {
					log.Printf("ERROR: Failed to reload scrolls: %v", err)
					return
				}
			}
			for _, line := range svc.scrolls.Statistics() {
				fmt.Println(line)
			}
		})
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	defer watcher.Stop()

	log.Printf("INFO: Watching %s and %s (Ctrl-C to stop)",
		svc.accounts.Path(), svc.artifacts.Path())
	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, os.Interrupt, syscall.SIGTERM)
	<-interrupted
}

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/wb-go/wbf/zlog"
	"golang.org/x/term"

	"github.com/taskbounty/bountyctl/internal/api"
	"github.com/taskbounty/bountyctl/internal/cache"
	"github.com/taskbounty/bountyctl/internal/cache/sqlite"
	"github.com/taskbounty/bountyctl/internal/checkout"
	"github.com/taskbounty/bountyctl/internal/config"
	"github.com/taskbounty/bountyctl/internal/feed"
	"github.com/taskbounty/bountyctl/internal/model"
	"github.com/taskbounty/bountyctl/internal/session"
)

func main() {
	zlog.Init()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "register":
		cmdRegister(args)
	case "login":
		cmdLogin(args)
	case "verify":
		cmdVerify(args)
	case "resend-code":
		cmdResendCode(args)
	case "logout":
		cmdLogout(args)
	case "whoami", "status":
		cmdWhoami(args)
	case "profile":
		cmdProfile(args)
	case "update":
		cmdUpdate(args)
	case "browse", "list":
		cmdBrowse(args)
	case "drafts":
		cmdDrafts(args)
	case "show":
		cmdShow(args)
	case "post":
		cmdPost(args)
	case "publish":
		cmdPublish(args)
	case "comment":
		cmdComment(args)
	case "vote":
		cmdVote(args)
	case "delete", "rm":
		cmdDelete(args)
	case "solutions":
		cmdSolutions(args)
	case "submit":
		cmdSubmit(args)
	case "approve":
		cmdApprove(args)
	case "onboard":
		cmdOnboard(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`bountyctl - TaskBounty command-line client

Usage: bountyctl <command> [options]

Account:
  register            Create an account (verification code goes to your email)
  verify              Confirm the emailed verification code
  resend-code         Re-send the verification code
  login               Authenticate and store the session
  logout              Clear the stored session
  whoami              Show the current session
  profile             Show your profile (or another user's with --user)
  update              Edit your profile

Bounties:
  browse              Browse public bounties (--search, --sort, --all)
  drafts              List your unpublished drafts
  show                Show one bounty with its comment thread
  post                Create a draft bounty
  publish             Pay the bounty price and make a draft public
  comment             Comment on a bounty (--parent for replies)
  vote                Upvote or downvote a bounty
  delete              Delete one of your bounties

Solutions:
  solutions           List solutions (yours, or a post's with --post)
  submit              Submit a solution to a bounty
  approve             Approve a solution and release the bounty
  onboard             Set up payouts for your account

Examples:
  bountyctl register --username alice --email a@example.com --birthdate 1990-04-01 --country US
  bountyctl browse --search "parser" --sort newest --all
  bountyctl post --title "Fix flaky CI" --desc "See repo X" --price 150.00
  bountyctl publish --id <bounty-id>
  bountyctl comment --id <bounty-id> --text "Can you share logs?"

Environment Variables:
  BOUNTY_API_URL        API base URL (default: https://api.taskbounty.dev)
  BOUNTY_DATA_DIR       Session and cache directory (default: ~/.bountyctl)
  BOUNTY_PAGE_SIZE      List page size (default: 10)
  BOUNTY_HTTP_TIMEOUT   HTTP timeout (default: 30s)
  BOUNTY_CALLBACK_ADDR  Payment callback listener (default: 127.0.0.1:8741)`)
}

// ============================================================================
// WIRING
// ============================================================================

type app struct {
	cfg    config.Config
	sess   *session.Session
	client *api.Client
}

func loadApp() *app {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	sess := session.Load(cfg.SessionPath())
	return &app{cfg: cfg, sess: sess, client: api.New(cfg, sess)}
}

func (a *app) requireAuth() {
	if !a.sess.Authenticated() {
		fmt.Fprintf(os.Stderr, "Error: %v\n", session.ErrNotAuthenticated)
		os.Exit(1)
	}
}

func (a *app) openCache() cache.Store {
	if err := os.MkdirAll(a.cfg.DataDir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating data dir: %v\n", err)
		os.Exit(1)
	}
	store, err := sqlite.Open(a.cfg.CachePath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening cache: %v\n", err)
		os.Exit(1)
	}
	return store
}

func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func die(err error) {
	if errors.Is(err, api.ErrUnauthorized) {
		fmt.Fprintf(os.Stderr, "Error: %v\nRun 'bountyctl login' and try again\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}

func promptPassword(label string) string {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			die(err)
		}
		return string(pw)
	}
	// Piped stdin (tests, scripts): read one line.
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		die(err)
	}
	return strings.TrimRight(line, "\r\n")
}

// ============================================================================
// ACCOUNT COMMANDS
// ============================================================================

func cmdRegister(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	username := fs.String("username", "", "Username (required)")
	email := fs.String("email", "", "Email address (required)")
	birthdate := fs.String("birthdate", "", "Birth date YYYY-MM-DD (required)")
	country := fs.String("country", "", "Two-letter country code (required)")
	fs.Parse(args)

	if *username == "" || *email == "" || *birthdate == "" || *country == "" {
		fmt.Fprintln(os.Stderr, "Error: --username, --email, --birthdate and --country are required")
		os.Exit(1)
	}

	password := promptPassword("Password")
	confirm := promptPassword("Confirm password")
	if password != confirm {
		fmt.Fprintln(os.Stderr, "Error: passwords do not match")
		os.Exit(1)
	}

	a := loadApp()
	ctx, cancel := interruptContext()
	defer cancel()

	profile, err := a.client.Register(ctx, api.RegisterRequest{
		Username:    *username,
		Email:       *email,
		Password:    password,
		BirthDate:   *birthdate,
		CountryCode: strings.ToUpper(*country),
	})
	if err != nil {
		die(err)
	}

	fmt.Printf("✓ Registered '%s'\n", profile.Username)
	fmt.Printf("  A verification code was sent to %s\n", *email)
	fmt.Println("\nNext: bountyctl verify --code <code>")
}

func cmdLogin(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "Email address (required)")
	fs.Parse(args)

	if *email == "" {
		fmt.Fprintln(os.Stderr, "Error: --email is required")
		os.Exit(1)
	}

	password := promptPassword("Password")

	a := loadApp()
	ctx, cancel := interruptContext()
	defer cancel()

	profile, err := a.client.Login(ctx, *email, password)
	if err != nil {
		die(err)
	}

	fmt.Printf("✓ Logged in as '%s'\n", profile.Username)
	if exp := a.sess.ExpiresAt(); !exp.IsZero() {
		fmt.Printf("  Session expires %s\n", exp.Format(time.RFC3339))
	}
}

func cmdVerify(args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	code := fs.String("code", "", "Verification code from the email (required)")
	fs.Parse(args)

	if *code == "" {
		fmt.Fprintln(os.Stderr, "Error: --code is required")
		os.Exit(1)
	}

	a := loadApp()
	ctx, cancel := interruptContext()
	defer cancel()

	if err := a.client.Verify(ctx, *code); err != nil {
		die(err)
	}

	fmt.Println("✓ Email verified")
	fmt.Println("\nNext: bountyctl login --email <email>")
}

func cmdResendCode(args []string) {
	fs := flag.NewFlagSet("resend-code", flag.ExitOnError)
	email := fs.String("email", "", "Email address (required)")
	fs.Parse(args)

	if *email == "" {
		fmt.Fprintln(os.Stderr, "Error: --email is required")
		os.Exit(1)
	}

	a := loadApp()
	ctx, cancel := interruptContext()
	defer cancel()

	if err := a.client.ResendCode(ctx, *email); err != nil {
		die(err)
	}

	fmt.Printf("✓ Verification code re-sent to %s\n", *email)
}

func cmdLogout(args []string) {
	a := loadApp()
	if err := a.sess.Logout(); err != nil {
		die(err)
	}
	fmt.Println("✓ Logged out")
}

func cmdWhoami(args []string) {
	a := loadApp()
	profile := a.sess.Profile()
	if profile.Username == "" {
		fmt.Println("Not logged in")
		fmt.Println("\nRun: bountyctl login --email <email>")
		return
	}

	fmt.Printf("User:    %s\n", profile.Username)
	fmt.Printf("Email:   %s\n", profile.Email)
	fmt.Printf("Country: %s\n", profile.CountryCode)
	switch exp := a.sess.ExpiresAt(); {
	case exp.IsZero():
		fmt.Println("Session: active")
	case time.Now().After(exp):
		fmt.Println("Session: expired")
		fmt.Println("\nRun: bountyctl login --email <email>")
	default:
		fmt.Printf("Session: valid until %s\n", exp.Format(time.RFC3339))
	}
}

func cmdProfile(args []string) {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)
	userID := fs.String("user", "", "Look up another user by id")
	fs.Parse(args)

	a := loadApp()
	a.requireAuth()
	ctx, cancel := interruptContext()
	defer cancel()

	var (
		profile model.Profile
		err     error
	)
	if *userID != "" {
		profile, err = a.client.ProfileByID(ctx, *userID)
	} else {
		profile, err = a.client.Profile(ctx)
	}
	if err != nil {
		die(err)
	}

	fmt.Printf("User:    %s (%s)\n", profile.Username, profile.UserID)
	if profile.Email != "" {
		fmt.Printf("Email:   %s\n", profile.Email)
	}
	if profile.BirthDate != "" {
		fmt.Printf("Born:    %s\n", profile.BirthDate)
	}
	if profile.CountryCode != "" {
		fmt.Printf("Country: %s\n", profile.CountryCode)
	}
}

func cmdUpdate(args []string) {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	username := fs.String("username", "", "New username")
	birthdate := fs.String("birthdate", "", "New birth date YYYY-MM-DD")
	country := fs.String("country", "", "New country code")
	fs.Parse(args)

	if *username == "" && *birthdate == "" && *country == "" {
		fmt.Fprintln(os.Stderr, "Error: nothing to update")
		os.Exit(1)
	}

	a := loadApp()
	a.requireAuth()
	ctx, cancel := interruptContext()
	defer cancel()

	profile, err := a.client.UpdateProfile(ctx, api.UpdateProfileRequest{
		Username:    *username,
		BirthDate:   *birthdate,
		CountryCode: strings.ToUpper(*country),
	})
	if err != nil {
		die(err)
	}

	fmt.Printf("✓ Profile updated: %s\n", profile.Username)
}

// ============================================================================
// BOUNTY COMMANDS
// ============================================================================

func cmdBrowse(args []string) {
	fs := flag.NewFlagSet("browse", flag.ExitOnError)
	search := fs.String("search", "", "Search text")
	sort := fs.String("sort", model.SortMostUpvoted, "Sort: most_upvoted, newest")
	all := fs.Bool("all", false, "Load every page, not just the first")
	fs.Parse(args)

	a := loadApp()
	store := a.openCache()
	defer store.Close()
	ctx, cancel := interruptContext()
	defer cancel()

	bounties := feed.NewBounties(a.client, store, a.cfg.PageSize)
	bounties.Query(*search, *sort)

	if err := bounties.LoadNext(ctx); err != nil {
		die(err)
	}
	if *all {
		for bounties.HasMore() {
			if err := bounties.LoadNext(ctx); err != nil {
				die(err)
			}
		}
	}

	items := bounties.Items()
	if len(items) == 0 {
		fmt.Println("No bounties found")
		return
	}
	fmt.Printf("\nBounties (%s)\n\n", *sort)
	for i, b := range items {
		printBountyLine(i+1, b)
	}
	if bounties.HasMore() {
		fmt.Println("(more available - rerun with --all)")
	}
}

func cmdDrafts(args []string) {
	fs := flag.NewFlagSet("drafts", flag.ExitOnError)
	all := fs.Bool("all", false, "Load every page")
	fs.Parse(args)

	a := loadApp()
	a.requireAuth()
	store := a.openCache()
	defer store.Close()
	ctx, cancel := interruptContext()
	defer cancel()

	drafts := feed.NewDrafts(a.client, store, a.cfg.PageSize)
	if err := drafts.LoadNext(ctx); err != nil {
		die(err)
	}
	if *all {
		for drafts.HasMore() {
			if err := drafts.LoadNext(ctx); err != nil {
				die(err)
			}
		}
	}

	items := drafts.Items()
	if len(items) == 0 {
		fmt.Println("No drafts")
		fmt.Println("\nRun: bountyctl post --title ... --desc ... --price ...")
		return
	}
	fmt.Println("\nDrafts")
	fmt.Println()
	for i, b := range items {
		printBountyLine(i+1, b)
	}
}

func cmdShow(args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	id := fs.String("id", "", "Bounty id (required)")
	fs.Parse(args)

	if *id == "" {
		fmt.Fprintln(os.Stderr, "Error: --id is required")
		os.Exit(1)
	}

	a := loadApp()
	store := a.openCache()
	defer store.Close()
	ctx, cancel := interruptContext()
	defer cancel()

	post, err := a.client.GetBounty(ctx, *id)
	if err != nil {
		die(err)
	}

	fmt.Printf("\n%s\n", post.Title)
	fmt.Printf("  $%s | ▲%d ▼%d | by %s\n", post.BountyPrice, post.Upvotes, post.Downvotes, post.CreatorID)
	if post.Description != "" {
		fmt.Printf("\n  %s\n", post.Description)
	}

	thread := feed.NewComments(a.client, store, *id, a.cfg.PageSize)
	for thread.HasMore() {
		if err := thread.LoadNext(ctx); err != nil {
			die(err)
		}
	}
	tree := thread.Tree()
	if len(tree) == 0 {
		return
	}
	fmt.Printf("\n  --- Comments (%d) ---\n", len(thread.Items()))
	printCommentTree(tree, 1)
}

func printCommentTree(nodes []model.CommentNode, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		author := n.AuthorUsername
		if author == "" {
			author = n.AuthorID
		}
		fmt.Printf("%s[%s] %s: %s\n", indent, n.ID, author, n.Content)
		printCommentTree(n.Replies, depth+1)
	}
}

func printBountyLine(n int, b model.BountyPost) {
	fmt.Printf("%d. %s\n", n, b.Title)
	fmt.Printf("   $%s | ▲%d ▼%d | %s\n\n", b.BountyPrice, b.Upvotes, b.Downvotes, b.ID)
}

func cmdPost(args []string) {
	fs := flag.NewFlagSet("post", flag.ExitOnError)
	title := fs.String("title", "", "Bounty title (required)")
	desc := fs.String("desc", "", "Task description (required)")
	price := fs.String("price", "", "Bounty price, e.g. 150.00 (required)")
	fs.Parse(args)

	if *title == "" || *desc == "" || *price == "" {
		fmt.Fprintln(os.Stderr, "Error: --title, --desc and --price are required")
		os.Exit(1)
	}

	a := loadApp()
	a.requireAuth()
	store := a.openCache()
	defer store.Close()
	ctx, cancel := interruptContext()
	defer cancel()

	post, err := a.client.CreateBounty(ctx, *title, *desc, *price)
	if err != nil {
		die(err)
	}
	feed.NewDrafts(a.client, store, a.cfg.PageSize).Invalidate(ctx)

	fmt.Printf("✓ Draft created: %s\n", post.Title)
	fmt.Printf("  ID: %s\n", post.ID)
	fmt.Println("\nNext: bountyctl publish --id", post.ID)
}

func cmdPublish(args []string) {
	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	id := fs.String("id", "", "Draft bounty id (required)")
	fs.Parse(args)

	if *id == "" {
		fmt.Fprintln(os.Stderr, "Error: --id is required")
		os.Exit(1)
	}

	a := loadApp()
	a.requireAuth()
	store := a.openCache()
	defer store.Close()
	ctx, cancel := interruptContext()
	defer cancel()

	err := checkout.Run(ctx, a.client, a.cfg.CallbackAddr, *id, func(url string) {
		fmt.Println("Open this link in your browser to pay the bounty price:")
		fmt.Printf("\n  %s\n\n", url)
		fmt.Println("Waiting for payment confirmation (Ctrl-C to abort)...")
	})
	if err != nil {
		if errors.Is(err, checkout.ErrCancelled) {
			fmt.Println("Payment cancelled; the draft was not published")
			return
		}
		die(err)
	}

	feed.NewDrafts(a.client, store, a.cfg.PageSize).Invalidate(ctx)
	if err := store.InvalidateAll(ctx, cache.BountyNamespace()); err != nil {
		zlog.Logger.Warn().Err(err).Msg("bounty cache invalidation failed")
	}

	fmt.Printf("✓ Published bounty %s\n", *id)
}

func cmdComment(args []string) {
	fs := flag.NewFlagSet("comment", flag.ExitOnError)
	id := fs.String("id", "", "Bounty id (required)")
	parent := fs.String("parent", "", "Parent comment id (for replies)")
	text := fs.String("text", "", "Comment text (required)")
	fs.Parse(args)

	if *id == "" || *text == "" {
		fmt.Fprintln(os.Stderr, "Error: --id and --text are required")
		os.Exit(1)
	}

	a := loadApp()
	a.requireAuth()
	store := a.openCache()
	defer store.Close()
	ctx, cancel := interruptContext()
	defer cancel()

	thread := feed.NewComments(a.client, store, *id, a.cfg.PageSize)
	comment, err := thread.Post(ctx, *parent, *text)
	if err != nil {
		die(err)
	}

	fmt.Printf("✓ Commented on bounty %s\n", *id)
	fmt.Printf("  ID: %s\n", comment.ID)
}

func cmdVote(args []string) {
	fs := flag.NewFlagSet("vote", flag.ExitOnError)
	id := fs.String("id", "", "Bounty id (required)")
	up := fs.Bool("up", false, "Upvote")
	down := fs.Bool("down", false, "Downvote")
	fs.Parse(args)

	if *id == "" {
		fmt.Fprintln(os.Stderr, "Error: --id is required")
		os.Exit(1)
	}
	if (*up && *down) || (!*up && !*down) {
		fmt.Fprintln(os.Stderr, "Error: provide exactly one of --up or --down")
		os.Exit(1)
	}

	a := loadApp()
	a.requireAuth()
	ctx, cancel := interruptContext()
	defer cancel()

	direction := model.VoteUp
	action := "Upvoted"
	if *down {
		direction = model.VoteDown
		action = "Downvoted"
	}

	if err := a.client.Vote(ctx, *id, direction); err != nil {
		die(err)
	}

	fmt.Printf("✓ %s bounty %s\n", action, *id)
}

func cmdDelete(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.String("id", "", "Bounty id to delete (required)")
	fs.Parse(args)

	if *id == "" {
		fmt.Fprintln(os.Stderr, "Error: --id is required")
		os.Exit(1)
	}

	a := loadApp()
	a.requireAuth()
	store := a.openCache()
	defer store.Close()
	ctx, cancel := interruptContext()
	defer cancel()

	if err := a.client.DeleteBounty(ctx, *id); err != nil {
		die(err)
	}
	for _, ns := range []string{cache.BountyNamespace(), cache.DraftNamespace(), cache.CommentsNamespace(*id)} {
		if err := store.InvalidateAll(ctx, ns); err != nil {
			zlog.Logger.Warn().Err(err).Str("namespace", ns).Msg("cache invalidation failed")
		}
	}

	fmt.Printf("✓ Deleted bounty %s\n", *id)
}

// ============================================================================
// SOLUTION COMMANDS
// ============================================================================

func cmdSolutions(args []string) {
	fs := flag.NewFlagSet("solutions", flag.ExitOnError)
	postID := fs.String("post", "", "List a post's solutions instead of your own")
	all := fs.Bool("all", false, "Load every page")
	fs.Parse(args)

	a := loadApp()
	a.requireAuth()
	store := a.openCache()
	defer store.Close()
	ctx, cancel := interruptContext()
	defer cancel()

	solutions := feed.NewSolutions(a.client, store, *postID, a.cfg.PageSize)
	if err := solutions.LoadNext(ctx); err != nil {
		die(err)
	}
	if *all {
		for solutions.HasMore() {
			if err := solutions.LoadNext(ctx); err != nil {
				die(err)
			}
		}
	}

	items := solutions.Items()
	if len(items) == 0 {
		fmt.Println("No solutions")
		return
	}
	for i, s := range items {
		state := "pending"
		if s.Approved {
			state = "approved"
		}
		fmt.Printf("%d. [%s] %s (bounty %s)\n", i+1, state, s.ID, s.BountyPostID)
		fmt.Printf("   %s\n\n", s.Content)
	}
}

func cmdSubmit(args []string) {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	postID := fs.String("post", "", "Bounty id (required)")
	text := fs.String("text", "", "Solution content (required)")
	fs.Parse(args)

	if *postID == "" || *text == "" {
		fmt.Fprintln(os.Stderr, "Error: --post and --text are required")
		os.Exit(1)
	}

	a := loadApp()
	a.requireAuth()
	store := a.openCache()
	defer store.Close()
	ctx, cancel := interruptContext()
	defer cancel()

	sol, err := a.client.SubmitSolution(ctx, *postID, *text)
	if err != nil {
		die(err)
	}
	feed.NewSolutions(a.client, store, "", a.cfg.PageSize).Invalidate(ctx)

	fmt.Printf("✓ Submitted solution to bounty %s\n", *postID)
	fmt.Printf("  ID: %s\n", sol.ID)
}

func cmdApprove(args []string) {
	fs := flag.NewFlagSet("approve", flag.ExitOnError)
	id := fs.String("id", "", "Solution id (required)")
	postID := fs.String("post", "", "Bounty id, to refresh its cached solutions")
	fs.Parse(args)

	if *id == "" {
		fmt.Fprintln(os.Stderr, "Error: --id is required")
		os.Exit(1)
	}

	a := loadApp()
	a.requireAuth()
	store := a.openCache()
	defer store.Close()
	ctx, cancel := interruptContext()
	defer cancel()

	if err := a.client.ApproveSolution(ctx, *id); err != nil {
		die(err)
	}
	if *postID != "" {
		feed.NewSolutions(a.client, store, *postID, a.cfg.PageSize).Invalidate(ctx)
	}

	fmt.Printf("✓ Approved solution %s and released the bounty\n", *id)
}

func cmdOnboard(args []string) {
	a := loadApp()
	a.requireAuth()
	ctx, cancel := interruptContext()
	defer cancel()

	url, err := a.client.OnboardingURL(ctx)
	if err != nil {
		die(err)
	}

	fmt.Println("Open this link in your browser to set up payouts:")
	fmt.Printf("\n  %s\n", url)
}

// Package main is the CarKeeper command-line client. It talks to the API
// server (cmd/server) and keeps a signed-in session on disk, so a login
// survives across invocations:
//
//	carkeeper register --username sam --password hunter2345
//	carkeeper login --username sam --password hunter2345
//	carkeeper add-vehicle --make Toyota --model Corolla --year 2019 --mileage 42000
//	carkeeper vehicles
//	carkeeper scan --vehicle <id> --image receipt.jpg
//	carkeeper summary
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/sakif/carkeeper/internal/client"
	"github.com/sakif/carkeeper/internal/extract"
	"github.com/sakif/carkeeper/internal/model"
)

const usage = `carkeeper — track your vehicles and their service history

Commands:
  register        create an account
  login           sign in and save the session
  logout          sign out and clear the session
  vehicles        list your vehicles
  add-vehicle     add a vehicle to your garage
  update-vehicle  edit a vehicle
  delete-vehicle  remove a vehicle and its history
  records         list service records for a vehicle
  add-record      log a service record
  delete-record   remove a service record
  scan            extract a service record from a receipt photo
  summary         show total spending across your garage

Every command accepts --server (or CARKEEPER_SERVER), default http://localhost:8080.
Run "carkeeper <command> --help" for command flags.`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]
	if err := run(cmd, args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd string, args []string) error {
	switch cmd {
	case "register":
		return cmdRegister(args)
	case "login":
		return cmdLogin(args)
	case "logout":
		return cmdLogout(args)
	case "vehicles":
		return cmdVehicles(args)
	case "add-vehicle":
		return cmdAddVehicle(args)
	case "update-vehicle":
		return cmdUpdateVehicle(args)
	case "delete-vehicle":
		return cmdDeleteVehicle(args)
	case "records":
		return cmdRecords(args)
	case "add-record":
		return cmdAddRecord(args)
	case "delete-record":
		return cmdDeleteRecord(args)
	case "scan":
		return cmdScan(args)
	case "summary":
		return cmdSummary(args)
	case "help", "-h", "--help":
		fmt.Println(usage)
		return nil
	default:
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// newFlagSet creates a flag set with the flags shared by every command.
func newFlagSet(name string) (*ff.FlagSet, *string) {
	fs := ff.NewFlagSet("carkeeper " + name)
	server := fs.StringLong("server", "http://localhost:8080", "API server base URL")
	return fs, server
}

func parse(fs *ff.FlagSet, args []string) error {
	err := ff.Parse(fs, args, ff.WithEnvVarPrefix("CARKEEPER"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
	}
	return err
}

// newStore builds the store every command drives: HTTP client, session
// file, and (only for scan) the extraction pipeline.
func newStore(serverURL string, pipeline *extract.Pipeline) (*client.Store, error) {
	sessionPath, err := client.DefaultSessionPath()
	if err != nil {
		return nil, err
	}
	api := client.NewClient(serverURL)
	store := client.NewStore(api, client.NewSessionFile(sessionPath), pipeline)
	store.SetDeleteConfirmer(confirmDelete)
	return store, nil
}

// loadSignedIn restores the session and fails when nobody is logged in.
func loadSignedIn(ctx context.Context, store *client.Store) error {
	if err := store.Load(ctx); err != nil {
		return err
	}
	if store.State().View != client.ViewDashboard {
		return fmt.Errorf("not signed in — run \"carkeeper login\" first")
	}
	return nil
}

func confirmDelete(vehicle model.Vehicle) bool {
	fmt.Printf("Delete %d %s %s and ALL of its service records? [y/N] ",
		vehicle.Year, vehicle.Make, vehicle.Model)
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func cmdRegister(args []string) error {
	fs, server := newFlagSet("register")
	username := fs.StringLong("username", "", "account username")
	password := fs.StringLong("password", "", "account password")
	if err := parse(fs, args); err != nil {
		return err
	}

	store, err := newStore(*server, nil)
	if err != nil {
		return err
	}
	if err := store.Authenticate(context.Background(), client.AuthRegister, *username, *password); err != nil {
		return err
	}
	fmt.Println(store.State().Banner)
	return nil
}

func cmdLogin(args []string) error {
	fs, server := newFlagSet("login")
	username := fs.StringLong("username", "", "account username")
	password := fs.StringLong("password", "", "account password")
	if err := parse(fs, args); err != nil {
		return err
	}

	store, err := newStore(*server, nil)
	if err != nil {
		return err
	}
	if err := store.Authenticate(context.Background(), client.AuthLogin, *username, *password); err != nil {
		return err
	}
	state := store.State()
	fmt.Printf("Signed in as %s. %d vehicle(s) in your garage.\n",
		state.User.Username, len(state.Vehicles))
	return nil
}

func cmdLogout(args []string) error {
	fs, server := newFlagSet("logout")
	if err := parse(fs, args); err != nil {
		return err
	}
	store, err := newStore(*server, nil)
	if err != nil {
		return err
	}
	if err := store.SignOut(); err != nil {
		return err
	}
	fmt.Println("Signed out.")
	return nil
}

func cmdVehicles(args []string) error {
	fs, server := newFlagSet("vehicles")
	if err := parse(fs, args); err != nil {
		return err
	}

	ctx := context.Background()
	store, err := newStore(*server, nil)
	if err != nil {
		return err
	}
	if err := loadSignedIn(ctx, store); err != nil {
		return err
	}

	state := store.State()
	if len(state.Vehicles) == 0 {
		fmt.Println("Your garage is empty. Add a vehicle with \"carkeeper add-vehicle\".")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tVEHICLE\tPLATE\tMILEAGE\tSERVICE")
	for _, v := range state.Vehicles {
		if err := store.SelectVehicle(ctx, v.ID); err != nil {
			return err
		}
		status := "ok"
		if store.ServiceDue() {
			status = "DUE"
		}
		fmt.Fprintf(w, "%s\t%d %s %s\t%s\t%d\t%s\n",
			v.ID, v.Year, v.Make, v.Model, v.LicensePlate, v.CurrentMileage, status)
	}
	return w.Flush()
}

func cmdAddVehicle(args []string) error {
	fs, server := newFlagSet("add-vehicle")
	var (
		makeName = fs.StringLong("make", "", "manufacturer, e.g. Toyota")
		modelStr = fs.StringLong("model", "", "model, e.g. Corolla")
		year     = fs.IntLong("year", 0, "model year")
		plate    = fs.StringLong("plate", "", "license plate (optional)")
		mileage  = fs.IntLong("mileage", 0, "current odometer reading")
	)
	if err := parse(fs, args); err != nil {
		return err
	}

	ctx := context.Background()
	store, err := newStore(*server, nil)
	if err != nil {
		return err
	}
	if err := loadSignedIn(ctx, store); err != nil {
		return err
	}

	vehicle := model.Vehicle{
		Make:           *makeName,
		Model:          *modelStr,
		Year:           *year,
		LicensePlate:   *plate,
		CurrentMileage: *mileage,
	}
	if err := store.AddVehicle(ctx, vehicle); err != nil {
		return err
	}
	fmt.Printf("Added %d %s %s.\n", *year, *makeName, *modelStr)
	return nil
}

func cmdUpdateVehicle(args []string) error {
	fs, server := newFlagSet("update-vehicle")
	var (
		id       = fs.StringLong("id", "", "vehicle ID (see \"carkeeper vehicles\")")
		makeName = fs.StringLong("make", "", "manufacturer")
		modelStr = fs.StringLong("model", "", "model")
		year     = fs.IntLong("year", 0, "model year")
		plate    = fs.StringLong("plate", "", "license plate")
		mileage  = fs.IntLong("mileage", 0, "current odometer reading")
	)
	if err := parse(fs, args); err != nil {
		return err
	}

	ctx := context.Background()
	store, err := newStore(*server, nil)
	if err != nil {
		return err
	}
	if err := loadSignedIn(ctx, store); err != nil {
		return err
	}

	current := findByID(store.State().Vehicles, *id)
	if current == nil {
		return fmt.Errorf("no vehicle with ID %q", *id)
	}

	// Unset flags keep the stored value.
	edited := *current
	if *makeName != "" {
		edited.Make = *makeName
	}
	if *modelStr != "" {
		edited.Model = *modelStr
	}
	if *year != 0 {
		edited.Year = *year
	}
	if *plate != "" {
		edited.LicensePlate = *plate
	}
	if *mileage != 0 {
		edited.CurrentMileage = *mileage
	}
	if err := store.UpdateVehicle(ctx, edited); err != nil {
		return err
	}
	fmt.Println("Vehicle updated.")
	return nil
}

func cmdDeleteVehicle(args []string) error {
	fs, server := newFlagSet("delete-vehicle")
	id := fs.StringLong("id", "", "vehicle ID")
	if err := parse(fs, args); err != nil {
		return err
	}

	ctx := context.Background()
	store, err := newStore(*server, nil)
	if err != nil {
		return err
	}
	if err := loadSignedIn(ctx, store); err != nil {
		return err
	}
	if err := store.DeleteVehicle(ctx, *id); err != nil {
		return err
	}
	fmt.Println("Done.")
	return nil
}

func cmdRecords(args []string) error {
	fs, server := newFlagSet("records")
	vehicleID := fs.StringLong("vehicle", "", "vehicle ID")
	if err := parse(fs, args); err != nil {
		return err
	}

	ctx := context.Background()
	store, err := newStore(*server, nil)
	if err != nil {
		return err
	}
	if err := loadSignedIn(ctx, store); err != nil {
		return err
	}
	if err := store.SelectVehicle(ctx, *vehicleID); err != nil {
		return err
	}

	state := store.State()
	if len(state.History) == 0 {
		fmt.Println("No service records yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tTASK\tCOST\tMILEAGE\tVERIFIED")
	for _, r := range state.History {
		verified := ""
		if r.VerificationHash != "" {
			verified = "✓"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t$%.2f\t%d\t%s\n",
			r.ID, r.Date, r.Task, r.Cost, r.Mileage, verified)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if store.ServiceDue() {
		fmt.Println("\nThis vehicle is due for service.")
	}
	return nil
}

func cmdAddRecord(args []string) error {
	fs, server := newFlagSet("add-record")
	var (
		vehicleID = fs.StringLong("vehicle", "", "vehicle ID")
		date      = fs.StringLong("date", "", "service date (YYYY-MM-DD)")
		task      = fs.StringLong("task", "", "work performed, e.g. \"Oil change\"")
		costStr   = fs.StringLong("cost", "0", "cost in dollars")
		mileage   = fs.IntLong("mileage", 0, "odometer at time of service")
	)
	if err := parse(fs, args); err != nil {
		return err
	}

	cost, err := strconv.ParseFloat(*costStr, 64)
	if err != nil {
		return fmt.Errorf("invalid --cost %q: %w", *costStr, err)
	}

	ctx := context.Background()
	store, err := newStore(*server, nil)
	if err != nil {
		return err
	}
	if err := loadSignedIn(ctx, store); err != nil {
		return err
	}
	if err := store.SelectVehicle(ctx, *vehicleID); err != nil {
		return err
	}

	record := model.Record{
		Date:    *date,
		Task:    *task,
		Cost:    cost,
		Mileage: *mileage,
	}
	if err := store.SaveRecord(ctx, record); err != nil {
		return err
	}
	fmt.Println("Record saved.")
	return nil
}

func cmdDeleteRecord(args []string) error {
	fs, server := newFlagSet("delete-record")
	var (
		vehicleID = fs.StringLong("vehicle", "", "vehicle ID")
		id        = fs.StringLong("id", "", "record ID")
	)
	if err := parse(fs, args); err != nil {
		return err
	}

	ctx := context.Background()
	store, err := newStore(*server, nil)
	if err != nil {
		return err
	}
	if err := loadSignedIn(ctx, store); err != nil {
		return err
	}
	if err := store.SelectVehicle(ctx, *vehicleID); err != nil {
		return err
	}
	if err := store.DeleteRecord(ctx, *id); err != nil {
		return err
	}
	fmt.Println("Record deleted.")
	return nil
}

// cmdScan runs the receipt image through Gemini, lets the user pick one of
// the extracted line items, and saves it as a verified service record.
func cmdScan(args []string) error {
	fs, server := newFlagSet("scan")
	var (
		vehicleID = fs.StringLong("vehicle", "", "vehicle ID")
		imagePath = fs.StringLong("image", "", "path to the receipt photo")
		apiKey    = fs.StringLong("gemini-key", "", "Google Gemini API key (or CARKEEPER_GEMINI_KEY)")
		modelName = fs.StringLong("gemini-model", "gemini-2.5-flash", "Gemini model name")
	)
	if err := parse(fs, args); err != nil {
		return err
	}
	if *apiKey == "" {
		*apiKey = os.Getenv("GEMINI_API_KEY")
	}

	ctx := context.Background()

	var pipeline *extract.Pipeline
	if *apiKey != "" {
		scanner, err := extract.NewGemini(ctx, *apiKey, *modelName)
		if err != nil {
			return err
		}
		defer scanner.Close()
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		pipeline = extract.NewPipeline(scanner, logger)
	}

	store, err := newStore(*server, pipeline)
	if err != nil {
		return err
	}
	if err := loadSignedIn(ctx, store); err != nil {
		return err
	}
	if err := store.SelectVehicle(ctx, *vehicleID); err != nil {
		return err
	}

	imageData, err := os.ReadFile(*imagePath)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}
	mimeType := http.DetectContentType(imageData)

	fmt.Println("Analyzing receipt...")
	if err := store.ScanReceipt(ctx, imageData, mimeType); err != nil {
		return err
	}

	state := store.State()
	fmt.Println(state.Banner)
	for i, item := range state.Extracted {
		fmt.Printf("  [%d] %s — $%.2f\n", i+1, item.Task, item.Cost)
	}

	fmt.Print("Pick an item to save (or press Enter to cancel): ")
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	answer = strings.TrimSpace(answer)
	if answer == "" {
		store.CancelSelection()
		fmt.Println("Cancelled.")
		return nil
	}
	choice, err := strconv.Atoi(answer)
	if err != nil || choice < 1 || choice > len(state.Extracted) {
		return fmt.Errorf("invalid choice %q", answer)
	}
	if err := store.SelectExtractedItem(choice - 1); err != nil {
		return err
	}

	draft := store.Draft()
	if draft.Date == "" {
		fmt.Print("Service date (YYYY-MM-DD): ")
		line, _ := reader.ReadString('\n')
		draft.Date = strings.TrimSpace(line)
	}
	if draft.Mileage == 0 {
		fmt.Print("Odometer at time of service: ")
		line, _ := reader.ReadString('\n')
		draft.Mileage, _ = strconv.Atoi(strings.TrimSpace(line))
	}

	if err := store.SaveRecord(ctx, draft); err != nil {
		return err
	}
	fmt.Println("Verified record saved.")
	return nil
}

func cmdSummary(args []string) error {
	fs, server := newFlagSet("summary")
	if err := parse(fs, args); err != nil {
		return err
	}

	ctx := context.Background()
	store, err := newStore(*server, nil)
	if err != nil {
		return err
	}
	if err := loadSignedIn(ctx, store); err != nil {
		return err
	}

	state := store.State()
	fmt.Printf("%d vehicle(s), $%.2f spent on maintenance all-time.\n",
		state.Summary.VehicleCount, state.Summary.TotalCost)
	due := 0
	for _, v := range state.Vehicles {
		if err := store.SelectVehicle(ctx, v.ID); err != nil {
			return err
		}
		if store.ServiceDue() {
			due++
		}
	}
	if due > 0 {
		fmt.Printf("%d vehicle(s) due for service.\n", due)
	}
	return nil
}

func findByID(vehicles []model.Vehicle, id string) *model.Vehicle {
	for i := range vehicles {
		if vehicles[i].ID == id {
			return &vehicles[i]
		}
	}
	return nil
}

package migration

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"git.carhub.se/carhub/carhub/src/db"
	"git.carhub.se/carhub/carhub/src/migration/migrations"
	"git.carhub.se/carhub/carhub/src/migration/types"
	"git.carhub.se/carhub/carhub/src/oops"
	"git.carhub.se/carhub/carhub/src/website"
	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
)

var listMigrations bool

func init() {
	migrateCommand := &cobra.Command{
		Use:   "migrate [target migration id]",
		Short: "Run database migrations",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			if listMigrations {
				ListMigrations(ctx)
				return
			}

			targetVersion := time.Time{}
			if len(args) > 0 {
				var err error
				targetVersion, err = time.Parse(time.RFC3339, args[0])
				if err != nil {
					fmt.Printf("ERROR: bad version string: %v\n", err)
					os.Exit(1)
				}
			}

			err := Migrate(ctx, types.MigrationVersion(targetVersion))
			if err != nil {
				fmt.Printf("ERROR: %v\n", err)
				os.Exit(1)
			}
		},
	}
	migrateCommand.Flags().BoolVar(&listMigrations, "list", false, "List available migrations")

	makeMigrationCommand := &cobra.Command{
		Use:   "makemigration <name> <description>...",
		Short: "Create a new database migration file",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 2 {
				fmt.Printf("You must provide a name and a description.\n\n")
				cmd.Usage()
				os.Exit(1)
			}

			name := args[0]
			description := strings.Join(args[1:], " ")

			err := MakeMigration(name, description)
			if err != nil {
				fmt.Printf("ERROR: %v\n", err)
				os.Exit(1)
			}
		},
	}

	website.WebsiteCommand.AddCommand(migrateCommand)
	website.WebsiteCommand.AddCommand(makeMigrationCommand)
}

func getSortedMigrationVersions() []types.MigrationVersion {
	var allVersions []types.MigrationVersion
	for migrationTime := range migrations.All {
		allVersions = append(allVersions, migrationTime)
	}
	sort.Slice(allVersions, func(i, j int) bool {
		return allVersions[i].Before(allVersions[j])
	})

	return allVersions
}

func getCurrentVersion(ctx context.Context, conn *pgx.Conn) (types.MigrationVersion, error) {
	var currentVersion time.Time
	row := conn.QueryRow(ctx, "SELECT version FROM carhub_migration")
	err := row.Scan(&currentVersion)
	if err != nil {
		return types.MigrationVersion{}, err
	}
	currentVersion = currentVersion.UTC()

	return types.MigrationVersion(currentVersion), nil
}

func tryGetCurrentVersion(ctx context.Context) types.MigrationVersion {
	conn, err := db.NewConn(ctx)
	if err != nil {
		return types.MigrationVersion{}
	}
	defer conn.Close(ctx)

	currentVersion, _ := getCurrentVersion(ctx, conn)

	return currentVersion
}

func ListMigrations(ctx context.Context) {
	currentVersion := tryGetCurrentVersion(ctx)
	for _, version := range getSortedMigrationVersions() {
		migration := migrations.All[version]
		indicator := "  "
		if version.Equal(currentVersion) {
			indicator = "✔ "
		}
		fmt.Printf("%s%v (%s: %s)\n", indicator, version, migration.Name(), migration.Description())
	}
}

// Returns the versions to apply (forward) or roll back (backward) to get
// from current to target, in the order they should run.
func plan(allVersions []types.MigrationVersion, current, target types.MigrationVersion) (forward []types.MigrationVersion, backward []types.MigrationVersion, err error) {
	if len(allVersions) == 0 {
		return nil, nil, nil
	}
	if target.IsZero() {
		target = allVersions[len(allVersions)-1]
	}

	currentIndex := -1
	targetIndex := -1
	for i, version := range allVersions {
		if current.Equal(version) {
			currentIndex = i
		}
		if target.Equal(version) {
			targetIndex = i
		}
	}

	if targetIndex < 0 {
		return nil, nil, oops.New(nil, "could not find migration with version %v", target)
	}
	if currentIndex < 0 && !current.IsZero() {
		return nil, nil, oops.New(nil, "database is at unknown migration version %v", current)
	}

	if currentIndex < targetIndex {
		forward = allVersions[currentIndex+1 : targetIndex+1]
	} else if currentIndex > targetIndex {
		for i := currentIndex; i > targetIndex; i-- {
			backward = append(backward, allVersions[i])
		}
	}
	return forward, backward, nil
}

func Migrate(ctx context.Context, targetVersion types.MigrationVersion) error {
	conn, err := db.NewConn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	// create migration table
	_, err = conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS carhub_migration (
			version		TIMESTAMP WITH TIME ZONE
		)
	`)
	if err != nil {
		return oops.New(err, "failed to create migration table")
	}

	// ensure there is a row
	row := conn.QueryRow(ctx, "SELECT COUNT(*) FROM carhub_migration")
	var numRows int
	err = row.Scan(&numRows)
	if err != nil {
		return oops.New(err, "failed to count migration rows")
	}
	if numRows < 1 {
		_, err := conn.Exec(ctx, "INSERT INTO carhub_migration (version) VALUES ($1)", time.Time{})
		if err != nil {
			return oops.New(err, "failed to insert initial migration row")
		}
	}

	currentVersion, err := getCurrentVersion(ctx, conn)
	if err != nil {
		return oops.New(err, "failed to get current version")
	}
	if currentVersion.IsZero() {
		fmt.Println("This is the first time you have run database migrations.")
	} else {
		fmt.Printf("Current version: %s\n", currentVersion.String())
	}

	allVersions := getSortedMigrationVersions()
	forward, backward, err := plan(allVersions, currentVersion, targetVersion)
	if err != nil {
		return err
	}

	if len(forward) == 0 && len(backward) == 0 {
		fmt.Println("Already migrated; nothing to do.")
		return nil
	}

	for _, version := range forward {
		migration := migrations.All[version]
		fmt.Printf("Applying migration %v (%v)\n", version, migration.Name())

		err := runInTx(ctx, conn, version, migration.Up)
		if err != nil {
			return oops.New(err, "migration %v failed", version)
		}
	}

	for _, version := range backward {
		previousVersion := types.MigrationVersion{}
		for i, v := range allVersions {
			if v.Equal(version) && i > 0 {
				previousVersion = allVersions[i-1]
			}
		}

		fmt.Printf("Rolling back migration %v\n", version)
		migration := migrations.All[version]
		err := runInTx(ctx, conn, previousVersion, migration.Down)
		if err != nil {
			return oops.New(err, "rollback of migration %v failed", version)
		}
	}

	return nil
}

// Runs step and records newVersion in one transaction.
func runInTx(ctx context.Context, conn *pgx.Conn, newVersion types.MigrationVersion, step func(context.Context, pgx.Tx) error) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	err = step(ctx, tx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, "UPDATE carhub_migration SET version = $1", time.Time(newVersion))
	if err != nil {
		return oops.New(err, "failed to update version in migrations table")
	}

	err = tx.Commit(ctx)
	if err != nil {
		return oops.New(err, "failed to commit transaction")
	}
	return nil
}

//go:embed migrationTemplate.txt
var migrationTemplate string

func renderMigration(name, description string, now time.Time) (filename string, contents string) {
	now = now.UTC()

	result := migrationTemplate
	result = strings.ReplaceAll(result, "%NAME%", name)
	result = strings.ReplaceAll(result, "%DESCRIPTION%", fmt.Sprintf("%#v", description))

	nowConstructor := fmt.Sprintf("time.Date(%d, %d, %d, %d, %d, %d, 0, time.UTC)", now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), now.Second())
	result = strings.ReplaceAll(result, "%DATE%", nowConstructor)

	safeVersion := strings.ReplaceAll(types.MigrationVersion(now).String(), ":", "")
	return fmt.Sprintf("%v_%v.go", safeVersion, name), result
}

func MakeMigration(name, description string) error {
	filename, contents := renderMigration(name, description, time.Now())
	path := filepath.Join("src", "migration", "migrations", filename)

	err := os.WriteFile(path, []byte(contents), 0644)
	if err != nil {
		return oops.New(err, "failed to write migration file")
	}

	fmt.Println("Successfully created migration file:")
	fmt.Println(path)
	return nil
}

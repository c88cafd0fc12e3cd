package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/revibe-app/revibe-backend/pkg/migrate"
)

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations failed validation: %v", err)
	}
}

func TestValidateDirRejectsBadFilename(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "001_short_version.sql", "-- +goose Up\n-- +goose Down\n")

	err := migrate.ValidateDir(dir)
	if err == nil || !strings.Contains(err.Error(), "invalid migration filename") {
		t.Fatalf("expected filename error, got %v", err)
	}
}

func TestValidateDirRejectsMissingMarkers(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "20250101000000_no_down.sql", "-- +goose Up\nSELECT 1;\n")

	err := migrate.ValidateDir(dir)
	if err == nil || !strings.Contains(err.Error(), "missing") {
		t.Fatalf("expected missing marker error, got %v", err)
	}
}

func TestValidateDirRejectsUnbalancedStatements(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "20250101000000_unbalanced.sql", "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n")

	err := migrate.ValidateDir(dir)
	if err == nil || !strings.Contains(err.Error(), "StatementBegin") {
		t.Fatalf("expected unbalanced marker error, got %v", err)
	}
}

func TestValidateDirRejectsDuplicateVersions(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "20250101000000_first.sql", "-- +goose Up\n-- +goose Down\n")
	write(t, dir, "20250101000000_second.sql", "-- +goose Up\n-- +goose Down\n")

	err := migrate.ValidateDir(dir)
	if err == nil || !strings.Contains(err.Error(), "duplicate migration version") {
		t.Fatalf("expected duplicate version error, got %v", err)
	}
}

func TestValidateDirReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "bad-name.sql", "-- +goose Up\n-- +goose Down\n")
	write(t, dir, "20250101000000_no_down.sql", "-- +goose Up\nSELECT 1;\n")

	err := migrate.ValidateDir(dir)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	if !strings.Contains(msg, "invalid migration filename") || !strings.Contains(msg, "missing") {
		t.Fatalf("expected both problems reported, got %v", err)
	}
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Widget Table!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_widget_table.sql") {
		t.Fatalf("unexpected filename %q", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration failed validation: %v", err)
	}
}

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

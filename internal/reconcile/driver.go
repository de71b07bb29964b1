package reconcile

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"psgdocs/api/internal/graph"
	"psgdocs/api/internal/ledger"
	"psgdocs/api/internal/psgname"
)

// RemoteDrive is the slice of the Graph client the driver needs.
type RemoteDrive interface {
	Authenticate(ctx context.Context) error
	ResolveDriveID(ctx context.Context) (string, error)
	FetchContent(ctx context.Context, path string) ([]byte, bool, error)
	UploadContent(ctx context.Context, path string, data []byte) error
	ItemIDByPath(ctx context.Context, path string) (string, bool, error)
	DeleteItem(ctx context.Context, itemID string) error
	ListChildren(ctx context.Context, path string) ([]graph.Item, error)
}

// DriverConfig fixes the remote layout a pass operates on.
type DriverConfig struct {
	BasePath       string
	LedgerFile     string
	PendingFolder  string
	RejectedFolder string
}

// Summary reports what a single pass did.
type Summary struct {
	Done    int
	Skipped int
	Pending int
}

// Driver runs one reconciliation pass at a time: it reads the status
// ledger, moves decided documents out of the pending folder, and
// rewrites the ledger without the processed rows.
type Driver struct {
	remote   RemoteDrive
	resolver *Resolver
	cfg      DriverConfig
}

func NewDriver(remote RemoteDrive, resolver *Resolver, cfg DriverConfig) *Driver {
	if cfg.BasePath == "" {
		cfg.BasePath = "PSG"
	}
	if cfg.LedgerFile == "" {
		cfg.LedgerFile = "Status_PSG.xlsx"
	}
	if cfg.PendingFolder == "" {
		cfg.PendingFolder = "Pendentes"
	}
	if cfg.RejectedFolder == "" {
		cfg.RejectedFolder = "Reprovados"
	}
	return &Driver{remote: remote, resolver: resolver, cfg: cfg}
}

// RunPass executes one full reconciliation pass. Authentication, drive
// resolution, and ledger access are pass-wide preconditions; their
// failure aborts the pass with an error. Row-level failures only skip
// the row, leaving it in the ledger for the next pass.
func (d *Driver) RunPass(ctx context.Context) (Summary, error) {
	var summary Summary

	if err := d.remote.Authenticate(ctx); err != nil {
		return summary, fmt.Errorf("authenticate: %w", err)
	}
	if _, err := d.remote.ResolveDriveID(ctx); err != nil {
		return summary, fmt.Errorf("resolve drive: %w", err)
	}

	ledgerPath := d.cfg.BasePath + "/" + d.cfg.LedgerFile
	data, found, err := d.remote.FetchContent(ctx, ledgerPath)
	if err != nil {
		return summary, fmt.Errorf("fetch ledger: %w", err)
	}
	if !found {
		log.Printf("reconcile: ledger %s not found, nothing to do", ledgerPath)
		return summary, nil
	}

	sheet, err := ledger.Parse(data)
	if err != nil {
		return summary, fmt.Errorf("parse ledger: %w", err)
	}

	remaining := make([]ledger.Row, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		decision := ledger.ParseDecision(row.Status)
		if decision == ledger.DecisionPending {
			summary.Pending++
			remaining = append(remaining, row)
			continue
		}
		if d.processRow(ctx, row, decision) {
			summary.Done++
			continue
		}
		summary.Skipped++
		remaining = append(remaining, row)
	}

	if summary.Done > 0 {
		out, err := sheet.Encode(remaining)
		if err != nil {
			return summary, fmt.Errorf("encode ledger: %w", err)
		}
		if err := d.remote.UploadContent(ctx, ledgerPath, out); err != nil {
			return summary, fmt.Errorf("rewrite ledger: %w", err)
		}
	}
	return summary, nil
}

// processRow drives one decided row to Done or Skipped. It reports true
// only when the document reached its destination; advisory cleanup
// failures do not change the outcome.
func (d *Driver) processRow(ctx context.Context, row ledger.Row, decision ledger.Decision) bool {
	fileName := row.Name + ".docx"
	pendingPath := d.cfg.BasePath + "/" + d.cfg.PendingFolder + "/" + fileName

	content, found, err := d.remote.FetchContent(ctx, pendingPath)
	if err != nil {
		log.Printf("reconcile: fetch %s: %v", pendingPath, err)
		return false
	}
	if !found {
		log.Printf("reconcile: %s not in pending folder, leaving row for next pass", fileName)
		return false
	}

	var destFolder string
	switch decision {
	case ledger.DecisionApproved:
		parsed, ok := psgname.Parse(row.Name)
		if !ok {
			log.Printf("reconcile: %s does not follow the naming convention, skipping", row.Name)
			return false
		}
		name, found, err := d.resolver.Resolve(ctx, parsed.FolderToken)
		if err != nil {
			log.Printf("reconcile: resolve folder for %s: %v", row.Name, err)
			return false
		}
		if !found {
			log.Printf("reconcile: no folder matches token %q for %s, skipping", parsed.FolderToken, row.Name)
			return false
		}
		destFolder = name
	case ledger.DecisionRejected:
		destFolder = d.cfg.RejectedFolder
	default:
		return false
	}

	destPath := d.cfg.BasePath + "/" + destFolder + "/" + fileName
	if err := d.remote.UploadContent(ctx, destPath, content); err != nil {
		log.Printf("reconcile: upload %s: %v", destPath, err)
		return false
	}

	if decision == ledger.DecisionApproved {
		d.cleanupSuperseded(ctx, destFolder, row.Name)
	}
	d.deletePendingOriginal(ctx, pendingPath)
	log.Printf("reconcile: %s -> %s", fileName, destFolder)
	return true
}

// cleanupSuperseded deletes the highest previously-approved version
// sharing the document's family prefix. Advisory: failures are logged
// and never fail the row.
func (d *Driver) cleanupSuperseded(ctx context.Context, destFolder, name string) {
	prefix := psgname.FamilyPrefix(name)
	if prefix == "" {
		return
	}
	children, err := d.remote.ListChildren(ctx, d.cfg.BasePath+"/"+destFolder)
	if err != nil {
		log.Printf("reconcile: list %s for cleanup: %v", destFolder, err)
		return
	}

	currentFile := name + ".docx"
	bestVersion := -1
	var best graph.Item
	for _, child := range children {
		if child.Name == currentFile {
			continue
		}
		base := strings.TrimSuffix(child.Name, ".docx")
		if base == child.Name || !strings.HasPrefix(base, prefix) {
			continue
		}
		version, err := strconv.Atoi(base[len(prefix):])
		if err != nil {
			continue
		}
		if version > bestVersion {
			bestVersion = version
			best = child
		}
	}
	if bestVersion < 0 {
		return
	}
	if err := d.remote.DeleteItem(ctx, best.ID); err != nil {
		log.Printf("reconcile: delete superseded %s: %v", best.Name, err)
		return
	}
	log.Printf("reconcile: removed superseded %s from %s", best.Name, destFolder)
}

// deletePendingOriginal removes the processed file from the pending
// folder. Advisory: the destination already holds the authoritative
// copy, so failure is only logged.
func (d *Driver) deletePendingOriginal(ctx context.Context, pendingPath string) {
	itemID, found, err := d.remote.ItemIDByPath(ctx, pendingPath)
	if err != nil || !found {
		if err != nil {
			log.Printf("reconcile: locate pending original %s: %v", pendingPath, err)
		}
		return
	}
	if err := d.remote.DeleteItem(ctx, itemID); err != nil {
		log.Printf("reconcile: delete pending original %s: %v", pendingPath, err)
	}
}

package notify

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/makerbot/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier.
type Console struct {
	out    io.Writer
	dryRun bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(dryRun bool) *Console {
	return &Console{out: os.Stdout, dryRun: dryRun}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, dryRun bool) *Console {
	return &Console{out: w, dryRun: dryRun}
}

// NotifyCycle imprime una línea compacta por ciclo disparado.
//
//	[14:03:21] QUOTE   btc=83412.50 fair=0.7500 bid=0.7400@10 ask=0.7600@10
//	[14:03:36] FLATTEN btc=83008.20 fair=0.5008 (sin edge — órdenes retiradas)
func (c *Console) NotifyCycle(rec domain.CycleRecord) {
	now := rec.At.Format("15:04:05")
	prefix := ""
	if c.dryRun {
		prefix = "[DRY] "
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s%-7s btc=%.2f fair=%.4f",
		now, prefix, rec.Action, rec.Price, rec.FairPrice)

	if rec.Action == domain.ActionQuote {
		fmt.Fprintf(&sb, " bid=%s ask=%s",
			sideLabel(rec.BuyOrderID, rec.BuyPrice, rec.Size),
			sideLabel(rec.SellOrderID, rec.SellPrice, rec.Size))
	} else {
		sb.WriteString(" (sin edge — órdenes retiradas)")
	}

	fmt.Fprintln(c.out, sb.String())
}

// sideLabel formatea un lado del quote; marca con ! los submits fallidos.
func sideLabel(orderID string, price, size float64) string {
	if orderID == "" {
		return fmt.Sprintf("%.4f@%.0f!FAILED", price, size)
	}
	return fmt.Sprintf("%.4f@%.0f", price, size)
}

// Summary imprime la tabla de resumen al terminar la sesión.
func (c *Console) Summary(summary domain.SessionSummary) {
	mode := "LIVE"
	if summary.DryRun {
		mode = "DRY-RUN"
	}

	elapsed := summary.StoppedAt.Sub(summary.StartedAt).Round(time.Second)

	fmt.Fprintf(c.out, "\n=== SESSION SUMMARY (%s) ===\n", mode)
	fmt.Fprintf(c.out, "  %s\n", summary.Question)

	table := tablewriter.NewWriter(c.out)
	table.Header("Strike", "Duration", "Cycles", "Quotes", "Flattens", "Trades", "Last BTC")
	table.Append(
		fmt.Sprintf("$%.0f", summary.Strike),
		elapsed.String(),
		fmt.Sprintf("%d", summary.Cycles),
		fmt.Sprintf("%d", summary.Quotes),
		fmt.Sprintf("%d", summary.Flattens),
		fmt.Sprintf("%d", summary.Trades),
		fmt.Sprintf("%.2f", summary.LastPrice),
	)
	table.Render()

	if summary.StopReason != "" {
		fmt.Fprintf(c.out, "  Stop: %s\n", summary.StopReason)
	}
	fmt.Fprintln(c.out)
}

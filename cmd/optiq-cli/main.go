// optiq-cli queries a running optiq API server from the command line.
//
// Usage:
//
//	optiq-cli [-server URL] portfolio
//	optiq-cli [-server URL] positions
//	optiq-cli [-server URL] orders [SYMBOL]
//	optiq-cli [-server URL] risk
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"optiq/pkg/optiq"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "optiq API server base URL")
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	client := optiq.NewClient(*server)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch flag.Arg(0) {
	case "portfolio":
		pf, err := client.GetPortfolio(ctx)
		if err != nil {
			log.Fatalf("portfolio: %v", err)
		}
		fmt.Printf("total value     %12.2f\n", pf.TotalValue)
		fmt.Printf("unrealized p&l  %12.2f\n", pf.UnrealizedPL)
		fmt.Printf("realized p&l    %12.2f\n", pf.RealizedPL)
		fmt.Printf("gross exposure  %12.2f\n", pf.GrossExposure)
		fmt.Printf("positions       %12d\n", pf.Positions)
		fmt.Printf("open orders     %12d\n", pf.OpenOrders)

	case "positions":
		positions, err := client.GetPositions(ctx)
		if err != nil {
			log.Fatalf("positions: %v", err)
		}
		if len(positions) == 0 {
			fmt.Println("no positions")
			return
		}
		fmt.Printf("%-24s %12s %12s %12s %12s\n", "SYMBOL", "QTY", "AVG", "LAST", "UNREAL P&L")
		for _, p := range positions {
			fmt.Printf("%-24s %12.2f %12.4f %12.4f %12.2f\n",
				p.Symbol, p.Qty, p.AvgPrice, p.LastPrice, p.UnrealizedPL)
		}

	case "orders":
		symbol := flag.Arg(1)
		orders, err := client.GetOrders(ctx, symbol)
		if err != nil {
			log.Fatalf("orders: %v", err)
		}
		if len(orders) == 0 {
			fmt.Println("no open orders")
			return
		}
		fmt.Printf("%-36s %-24s %-5s %10s %10s %-16s\n", "ID", "SYMBOL", "SIDE", "QTY", "FILLED", "STATUS")
		for _, o := range orders {
			fmt.Printf("%-36s %-24s %-5s %10.2f %10.2f %-16s\n",
				o.ID, o.Symbol, o.Side, o.Qty, o.FilledQty, o.Status)
		}

	case "risk":
		risk, err := client.GetRisk(ctx)
		if err != nil {
			log.Fatalf("risk: %v", err)
		}
		fmt.Printf("risk level          %8.4f\n", risk.Level)
		fmt.Printf("max position size   %8.0f\n", risk.MaxPositionSize)
		fmt.Printf("max drawdown        %8.4f\n", risk.MaxDrawdown)
		fmt.Printf("max leverage        %8.2f\n", risk.MaxLeverage)
		fmt.Printf("max risk per trade  %8.4f\n", risk.MaxRiskPerTrade)
		fmt.Printf("max daily loss      %8.0f\n", risk.MaxDailyLoss)

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", flag.Arg(0))
		flag.Usage()
		os.Exit(2)
	}
}

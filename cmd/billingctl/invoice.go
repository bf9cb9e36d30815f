package main

import (
	"fmt"

	"github.com/Musavvir24/my-software/internal/invoice"
	"github.com/Musavvir24/my-software/internal/pdf"
	"github.com/spf13/cobra"
)

var invoiceCmd = &cobra.Command{
	Use:   "invoice",
	Short: "Inspect a tenant's invoices",
}

var invoiceNextNumberCmd = &cobra.Command{
	Use:   "next-number",
	Short: "Print the number the next invoice would get",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		t, err := current.registry.Resolve(cmd.Context(), email)
		if err != nil {
			return err
		}

		svc := invoice.NewService(invoice.NewNumberer(current.cfg.InvoiceNumbering), nil, nil, current.cfg.Location())
		number, err := svc.NextNumber(cmd.Context(), t)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), number)
		return nil
	},
}

var invoiceRenderCmd = &cobra.Command{
	Use:     "render",
	Short:   "Render the PDF of a saved invoice",
	Example: `  billingctl invoice render --email shop@example.com --number INV-07`,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		number, _ := cmd.Flags().GetString("number")
		cfg := current.cfg

		t, err := current.registry.Resolve(cmd.Context(), email)
		if err != nil {
			return err
		}

		chrome := pdf.NewChromeRasterizer(cfg.ChromePath)
		defer chrome.Close()
		renderer, err := pdf.NewRenderer(cfg.PDFDir, chrome, 1, cfg.PDFTimeout)
		if err != nil {
			return err
		}

		svc := invoice.NewService(invoice.NewNumberer(cfg.InvoiceNumbering), renderer, nil, cfg.Location())
		path, err := svc.RenderByNumber(cmd.Context(), t, number)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(invoiceCmd)
	invoiceCmd.AddCommand(invoiceNextNumberCmd, invoiceRenderCmd)

	for _, c := range []*cobra.Command{invoiceNextNumberCmd, invoiceRenderCmd} {
		c.Flags().String("email", "", "Account email")
		c.MarkFlagRequired("email")
	}
	invoiceRenderCmd.Flags().String("number", "", "Invoice number")
	invoiceRenderCmd.MarkFlagRequired("number")
}

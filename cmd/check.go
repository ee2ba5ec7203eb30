package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	globalConfig "github.com/ozcart/salewatch/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	checkItemsFlag    string
	checkPostcodeFlag string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check a list of grocery items for sales once and exit",
	Long: `Runs a single sale check from the command line without starting the API
server. Items are comma separated.

Example:
  salewatch check --items "milk 2L, eggs 12 pack" --postcode 2000`,
	Run: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkItemsFlag, "items", "i", "", `comma separated items to check | example: --items="milk 2L,eggs"`)
	checkCmd.Flags().StringVarP(&checkPostcodeFlag, "postcode", "", "", "postcode for store availability, defaults to the configured one")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(_ *cobra.Command, _ []string) {
	defer StopApp()

	items := splitItems(checkItemsFlag)
	if len(items) == 0 {
		logrus.Fatalln(`No items given. Use --items="milk 2L,eggs"`)
	}

	postcode := checkPostcodeFlag
	if postcode == "" {
		postcode = globalConfig.DefaultPostcode
	}

	response, err := checkUsecase.CheckItems(context.Background(), items, postcode)
	if err != nil {
		logrus.Fatalln("Check failed: ", err.Error())
	}

	onSale := 0
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ITEM\tRETAILER\tMATCH\tPRICE\tON SALE\tPROMO")
	for _, result := range response.Results {
		if result.BestMatch == nil {
			fmt.Fprintf(w, "%s\t%s\t-\t-\t-\t-\n", result.Input, result.Retailer)
			continue
		}
		if result.OnSale {
			onSale++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			result.Input,
			result.Retailer,
			*result.BestMatch,
			formatPrice(result.Price),
			formatOnSale(result.OnSale),
			result.PromoText,
		)
	}
	w.Flush()

	fmt.Printf("\nChecked %d item(s) across %d result(s), %d on sale\n",
		response.ItemsChecked, len(response.Results), onSale)
}

func splitItems(raw string) []string {
	var items []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

func formatPrice(price *float64) string {
	if price == nil {
		return "-"
	}
	return "$" + humanize.CommafWithDigits(*price, 2)
}

func formatOnSale(onSale bool) string {
	if onSale {
		return "yes"
	}
	return "no"
}

package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-cart/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
)

// dispatch runs one command against the cart and prints the result.
func (a *app) dispatch(ctx context.Context, args []string, out io.Writer) error {
	name, rest := args[0], args[1:]

	var (
		result cart.Cart
		err    error
	)
	switch name {
	case "get":
		result, err = a.facade.Get(ctx)
	case "add":
		product, quantity, parseErr := parseAddArgs(rest)
		if parseErr != nil {
			return parseErr
		}
		result, err = a.facade.AddItem(ctx, product, quantity)
	case "update":
		if len(rest) != 2 {
			return usageError("update <lineId> <qty>")
		}
		quantity, parseErr := parseQuantity(rest[1])
		if parseErr != nil {
			return parseErr
		}
		result, err = a.facade.UpdateItem(ctx, rest[0], quantity)
	case "remove":
		if len(rest) != 1 {
			return usageError("remove <lineId>")
		}
		result, err = a.facade.RemoveItem(ctx, rest[0])
	case "clear":
		result, err = a.facade.Clear(ctx)
	case "logout":
		a.logout(ctx)
		fmt.Fprintln(out, "signed out, guest cart discarded")
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown command %q", name))
	}
	if err != nil {
		return err
	}
	return printCart(out, a.facade.Mode(), result)
}

func parseAddArgs(args []string) (cart.Product, int, error) {
	if len(args) < 4 || len(args) > 5 {
		return cart.Product{}, 0, usageError("add <productId> <name> <price> <stock> [qty]")
	}
	price, err := decimal.NewFromString(args[2])
	if err != nil {
		return cart.Product{}, 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid price %q", args[2]))
	}
	stock, err := strconv.Atoi(args[3])
	if err != nil || stock < 0 {
		return cart.Product{}, 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid stock %q", args[3]))
	}
	quantity := 1
	if len(args) == 5 {
		if quantity, err = parseQuantity(args[4]); err != nil {
			return cart.Product{}, 0, err
		}
	}
	return cart.Product{ID: args[0], Name: args[1], Price: price, Stock: stock}, quantity, nil
}

func parseQuantity(raw string) (int, error) {
	quantity, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid quantity %q", raw))
	}
	return quantity, nil
}

func usageError(usage string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "usage: "+usage)
}

func printCart(out io.Writer, mode string, c cart.Cart) error {
	fmt.Fprintf(out, "mode: %s\n", mode)
	if c.IsEmpty() {
		fmt.Fprintln(out, "cart is empty")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tPRODUCT\tQTY\tUNIT\tTOTAL")
	for _, line := range c.Items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			line.LineID, line.ProductName, line.Quantity, money(line.UnitPrice), money(line.LineTotal))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "items: %d  total: %s\n", c.TotalQuantity(), money(c.TotalAmount))
	return nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

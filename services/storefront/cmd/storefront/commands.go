package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/utafrali/agrostore/pkg/money"
	"github.com/utafrali/agrostore/services/storefront/internal/api"
	"github.com/utafrali/agrostore/services/storefront/internal/app"
	"github.com/utafrali/agrostore/services/storefront/internal/checkout"
	"github.com/utafrali/agrostore/services/storefront/internal/domain"
)

var errUsage = errors.New("invalid usage")

const usage = `usage: storefront <command> [args]

commands:
  products [--category NAME] [--q TEXT] [--sort name|price]
                               list the catalog, optionally searched and sorted
  categories                   list categories
  add <id> [qty]               add a product to the cart
  set <id> <qty>               change a line's quantity (0 removes it)
  remove <id>                  remove a line
  cart                         show the cart
  clear                        empty the cart
  checkout --name N --phone P  place an order for the cart
  orders                       list your orders
`

func usageErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// run executes one command against a.
func run(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) == 0 {
		return usageErr("missing command")
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "products":
		return runProducts(ctx, a, rest, out)
	case "categories":
		return runCategories(ctx, a, out)
	case "add":
		return runAdd(ctx, a, rest, out)
	case "set":
		return runSet(a, rest, out)
	case "remove":
		if len(rest) != 1 {
			return usageErr("remove takes exactly one product id")
		}
		a.Cart.Remove(rest[0])
		return printCart(a, out)
	case "cart":
		return printCart(a, out)
	case "clear":
		a.Cart.Clear()
		fmt.Fprintln(out, "cart cleared")
		return nil
	case "checkout":
		return runCheckout(ctx, a, rest, out)
	case "orders":
		return runOrders(ctx, a, out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		return usageErr("unknown command %q", cmd)
	}
}

func runProducts(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("products", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	category := fs.String("category", "", "filter by category")
	query := fs.String("q", "", "search name and description")
	sortBy := fs.String("sort", "name", "order by name or price")
	if err := fs.Parse(args); err != nil {
		return usageErr("%v", err)
	}
	by, err := api.ParseProductSort(*sortBy)
	if err != nil {
		return usageErr("%v", err)
	}

	products, err := a.API.Products(ctx, *category)
	if err != nil {
		return err
	}
	products = api.FilterProducts(products, *query, by)
	if len(products) == 0 {
		fmt.Fprintln(out, "no products match")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tUNIT\tCATEGORY")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, money.Format(p.UnitPriceCents()), p.Unit, p.Category)
	}
	return tw.Flush()
}

func runCategories(ctx context.Context, a *app.App, out io.Writer) error {
	categories, err := a.API.Categories(ctx)
	if err != nil {
		return err
	}
	for _, c := range categories {
		fmt.Fprintf(out, "%s\t%s\n", c.ID, c.Name)
	}
	return nil
}

func runAdd(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) < 1 || len(args) > 2 {
		return usageErr("add takes a product id and an optional quantity")
	}
	qty := 1
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return usageErr("quantity must be a positive integer, got %q", args[1])
		}
		qty = n
	}

	p, err := a.API.Product(ctx, args[0])
	if err != nil {
		return err
	}

	a.Cart.Add(domain.CartLine{
		ID:             p.ID,
		Name:           p.Name,
		UnitPriceCents: p.UnitPriceCents(),
		Quantity:       qty,
	})
	return printCart(a, out)
}

func runSet(a *app.App, args []string, out io.Writer) error {
	if len(args) != 2 {
		return usageErr("set takes a product id and a quantity")
	}
	qty, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return usageErr("quantity must be a number, got %q", args[1])
	}
	if _, ok := a.Cart.Line(args[0]); !ok {
		return fmt.Errorf("product %s is not in the cart", args[0])
	}
	a.Cart.SetQuantityFloat(args[0], qty)
	return printCart(a, out)
}

func runCheckout(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	name := fs.String("name", "", "customer name")
	phone := fs.String("phone", "", "customer phone")
	if err := fs.Parse(args); err != nil {
		return usageErr("%v", err)
	}

	res, err := a.Checkout.Submit(ctx, checkout.Customer{Name: *name, Phone: *phone})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "order %s placed, total %s\n", res.OrderID, money.Format(res.TotalCents))
	return nil
}

func runOrders(ctx context.Context, a *app.App, out io.Writer) error {
	orders, err := a.API.Orders(ctx)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		fmt.Fprintln(out, "no orders yet")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tTOTAL\tITEMS\tCREATED")
	for _, o := range orders {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			o.ID, o.Status, money.Format(o.TotalCents), len(o.Items), o.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func printCart(a *app.App, out io.Writer) error {
	lines := a.Cart.Lines()
	if len(lines) == 0 {
		fmt.Fprintln(out, "cart is empty")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQTY\tPRICE\tSUBTOTAL")
	for _, l := range lines {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", l.ID, l.Name, l.Quantity, money.Format(l.UnitPriceCents), money.Format(l.Subtotal()))
	}
	fmt.Fprintf(tw, "\t\t%d\t\t%s\n", a.Cart.ItemCount(), money.Format(a.Cart.TotalCents()))
	return tw.Flush()
}

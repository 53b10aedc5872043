package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/checkout"
	"github.com/angelmondragon/storefront/internal/events"
	"github.com/angelmondragon/storefront/internal/storesettings"
	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const maxQuantity = 999

var errUsage = errors.New("usage")

const usage = `usage: shop <command> [arguments]

commands:
  products [-category id] [-featured]   list catalog products
  search <text>                         search the catalog
  add <productId> [quantity]            add a product to the cart
  qty <productId> <quantity>            set a line quantity, 0 removes it
  remove <productId>                    remove a line
  list                                  show the cart
  clear                                 empty the cart
  checkout [flags]                      validate and place the order
`

// productSource is the part of the catalog the CLI reads.
type productSource interface {
	ListProducts(ctx context.Context, q catalog.Query) ([]catalog.Product, error)
	Search(ctx context.Context, q string) ([]catalog.Product, error)
	GetProduct(ctx context.Context, id string) (*catalog.Product, error)
}

type app struct {
	out      io.Writer
	logg     *logger.Logger
	bus      *events.Bus
	cart     *cart.Store
	catalog  productSource
	sender   checkout.Sender
	settings checkout.SettingsResolver
	storeID  string
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "products":
		return a.products(ctx, rest)
	case "search":
		return a.search(ctx, rest)
	case "add":
		return a.add(ctx, rest)
	case "qty":
		return a.qty(ctx, rest)
	case "remove":
		return a.remove(ctx, rest)
	case "list":
		a.list()
		return nil
	case "clear":
		a.cart.Clear(ctx)
		a.list()
		return nil
	case "checkout":
		return a.checkout(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	}
	fmt.Fprintf(a.out, "unknown command %q\n\n%s", cmd, usage)
	return errUsage
}

func (a *app) products(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("products", flag.ContinueOnError)
	fs.SetOutput(a.out)
	category := fs.String("category", "", "category id")
	featured := fs.Bool("featured", false, "only featured products")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	q := catalog.Query{CategoryID: *category}
	if *featured {
		q.IsFeatured = featured
	}
	products, err := a.catalog.ListProducts(ctx, q)
	if err != nil {
		return err
	}
	a.printProducts(products)
	return nil
}

func (a *app) search(ctx context.Context, args []string) error {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		fmt.Fprintln(a.out, "usage: shop search <text>")
		return errUsage
	}
	products, err := a.catalog.Search(ctx, text)
	if err != nil {
		return err
	}
	a.printProducts(products)
	return nil
}

func (a *app) add(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(a.out, "usage: shop add <productId> [quantity]")
		return errUsage
	}
	qty := 1
	if len(args) == 2 {
		n, err := parseQuantity(args[1])
		if err != nil {
			return err
		}
		qty = n
	}
	if qty < 1 {
		return fmt.Errorf("quantity must be at least 1")
	}

	product, err := a.catalog.GetProduct(ctx, args[0])
	if err != nil {
		return err
	}
	existing, _ := a.cart.Get(product.ID)
	if product.Quantity != nil && existing.Quantity+qty > *product.Quantity {
		return fmt.Errorf("only %d of %s available", *product.Quantity, product.Name)
	}
	if err := a.cart.Add(ctx, product.Snapshot(), qty); err != nil {
		return err
	}
	a.list()
	return nil
}

func (a *app) qty(ctx context.Context, args []string) error {
	if len(args) != 2 {
		fmt.Fprintln(a.out, "usage: shop qty <productId> <quantity>")
		return errUsage
	}
	n, err := parseQuantity(args[1])
	if err != nil {
		return err
	}
	if _, ok := a.cart.Get(args[0]); !ok {
		return fmt.Errorf("%s is not in the cart", args[0])
	}
	if n == 0 {
		a.cart.Remove(ctx, args[0])
	} else {
		a.cart.UpdateQty(ctx, args[0], n)
	}
	a.list()
	return nil
}

func (a *app) remove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "usage: shop remove <productId>")
		return errUsage
	}
	a.cart.Remove(ctx, args[0])
	a.list()
	return nil
}

func (a *app) list() {
	items := a.cart.Items()
	if len(items) == 0 {
		fmt.Fprintln(a.out, "cart is empty")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQTY\tPRICE\tTOTAL")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			item.Product.ID, item.Product.Name, item.Quantity,
			item.Product.Price.StringFixed(2), item.LineTotal().StringFixed(2))
	}
	_ = tw.Flush()
	fmt.Fprintf(a.out, "%d item(s), subtotal %s\n", a.cart.Count(), a.cart.Subtotal().StringFixed(2))
}

func (a *app) printProducts(products []catalog.Product) {
	if len(products) == 0 {
		fmt.Fprintln(a.out, "no products found")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tSTOCK")
	for _, p := range products {
		stock := "-"
		if p.Quantity != nil {
			stock = strconv.Itoa(*p.Quantity)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Price.StringFixed(2), stock)
	}
	_ = tw.Flush()
}

// checkout opens a session, prints what validation found and, unless
// -validate-only is set, submits the form.
func (a *app) checkout(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	fs.SetOutput(a.out)
	var form checkout.Form
	fs.StringVar(&form.CustomerName, "name", "", "customer name")
	fs.StringVar(&form.Address, "address", "", "delivery address")
	fs.StringVar(&form.Phone, "phone", "", "contact phone")
	fs.StringVar(&form.PaymentMethod, "payment", "", "payment method value, defaults to the first enabled")
	fs.StringVar(&form.ShippingMethod, "shipping", "", "shipping method value, defaults to the first enabled")
	storeID := fs.String("store", a.storeID, "store id, defaults to the store of the first cart line")
	validateOnly := fs.Bool("validate-only", false, "only check stock and show the available methods")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	session, err := checkout.NewSession(a.cart, a.sender, a.settings, checkout.Options{Bus: a.bus, Logger: a.logg})
	if err != nil {
		return err
	}
	defer func() {
		session.Close()
		session.Wait()
	}()

	snap := session.Open(ctx, *storeID)
	if snap.CanRetry {
		fmt.Fprintln(a.out, "retrying once...")
		snap = session.Retry(ctx)
	}
	a.printSnapshot(snap)

	if snap.Problem != nil && snap.Problem.Kind != enums.CheckoutErrorValidationFailed {
		return errors.New(snap.Problem.Message)
	}
	if *validateOnly {
		return nil
	}
	if len(snap.Failures) > 0 {
		return errors.New("fix the cart lines above before placing the order")
	}

	receipt, err := session.Submit(ctx, form)
	if err != nil {
		a.printSnapshot(session.Snapshot())
		return err
	}
	if receipt.OrderID != "" {
		fmt.Fprintf(a.out, "order %s placed\n", receipt.OrderID)
	} else {
		fmt.Fprintln(a.out, "order placed")
	}
	return nil
}

func (a *app) printSnapshot(snap checkout.Snapshot) {
	fmt.Fprintf(a.out, "checkout: %s", snap.State)
	if snap.StoreID != "" {
		fmt.Fprintf(a.out, " (store %s)", snap.StoreID)
	}
	fmt.Fprintln(a.out)

	if !snap.SettingsFound {
		fmt.Fprintln(a.out, "store settings unavailable, no payment or shipping methods to choose from")
	} else {
		printMethods(a.out, "payment", snap.PaymentMethods, snap.PaymentMethod)
		printMethods(a.out, "shipping", snap.ShippingMethods, snap.ShippingMethod)
	}
	for _, line := range snap.Failures {
		fmt.Fprintf(a.out, "  ! %s\n", line)
	}
	if snap.Problem != nil {
		fmt.Fprintf(a.out, "problem: %s\n", snap.Problem.Message)
	}
}

func printMethods(out io.Writer, label string, methods []storesettings.Method, selected string) {
	fmt.Fprintf(out, "%s methods:\n", label)
	for _, m := range methods {
		marker := " "
		switch {
		case m.Value == selected:
			marker = "*"
		case !m.Enabled:
			marker = "x"
		}
		name := m.Label
		if name == "" {
			name = m.Value
		}
		fmt.Fprintf(out, "  %s %s (%s)\n", marker, name, m.Value)
	}
}

// parseQuantity accepts 0 to maxQuantity.
func parseQuantity(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("quantity %q is not a number", raw)
	}
	if n < 0 || n > maxQuantity {
		return 0, fmt.Errorf("quantity must be between 0 and %d", maxQuantity)
	}
	return n, nil
}

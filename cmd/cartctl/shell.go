package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/angelmondragon/storefront-cart/internal/cartserver"
	"github.com/angelmondragon/storefront-cart/internal/widgets"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
)

const shellHelp = `commands:
  show                 redraw the storefront
  add|inc|dec|rm <n>   act on product tile n
  up|down|drop <line>  act on a cart drawer line
  clear                empty the cart
  logout               sign out and discard the guest cart
  quit                 leave the shell
`

// shell hosts one header badge, one cart drawer and a tile per catalog
// product, all mounted on the app's bus.
type shell struct {
	app    *app
	out    io.Writer
	badge  *widgets.HeaderBadge
	drawer *widgets.CartDrawer
	tiles  []*widgets.ProductTile
	dirty  atomic.Bool
}

func newShell(a *app, out io.Writer) (*shell, error) {
	s := &shell{app: a, out: out}
	deps := widgets.Deps{
		Source:   a.facade,
		Bus:      a.bus,
		Logger:   a.logg,
		OnChange: func() { s.dirty.Store(true) },
	}

	var err error
	if s.badge, err = widgets.NewHeaderBadge(deps); err != nil {
		return nil, err
	}
	if s.drawer, err = widgets.NewCartDrawer(deps); err != nil {
		return nil, err
	}
	for _, product := range cartserver.DefaultCatalog() {
		tile, err := widgets.NewProductTile(product, deps)
		if err != nil {
			return nil, err
		}
		s.tiles = append(s.tiles, tile)
	}
	return s, nil
}

func (s *shell) mount(ctx context.Context) {
	s.badge.Mount(ctx)
	s.drawer.Mount(ctx)
	for _, tile := range s.tiles {
		tile.Mount(ctx)
	}
}

func (s *shell) unmount() {
	for _, tile := range s.tiles {
		tile.Unmount()
	}
	s.drawer.Unmount()
	s.badge.Unmount()
}

func runShell(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	s, err := newShell(a, out)
	if err != nil {
		return err
	}
	s.mount(ctx)
	defer s.unmount()

	s.render()
	fmt.Fprint(out, shellHelp)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}
		if err := s.exec(ctx, fields); err != nil {
			fmt.Fprintf(out, "error: %s\n", displayError(err))
		}
		if s.dirty.Swap(false) || fields[0] == "show" {
			s.render()
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (s *shell) exec(ctx context.Context, fields []string) error {
	name, args := fields[0], fields[1:]
	switch name {
	case "show":
		return nil
	case "help":
		fmt.Fprint(s.out, shellHelp)
		return nil
	case "clear":
		return s.drawer.Clear(ctx)
	case "logout":
		s.app.logout(ctx)
		return nil
	case "add", "inc", "dec", "rm":
		tile, err := s.tile(args)
		if err != nil {
			return err
		}
		switch name {
		case "add":
			return tile.Add(ctx)
		case "inc":
			return tile.Increment(ctx)
		case "dec":
			return tile.Decrement(ctx)
		default:
			return tile.Remove(ctx)
		}
	case "up", "down", "drop":
		if len(args) != 1 {
			return usageError(name + " <lineId>")
		}
		switch name {
		case "up":
			return s.drawer.Increment(ctx, args[0])
		case "down":
			return s.drawer.Decrement(ctx, args[0])
		default:
			return s.drawer.Remove(ctx, args[0])
		}
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown command %q", name))
	}
}

func (s *shell) tile(args []string) (*widgets.ProductTile, error) {
	if len(args) != 1 {
		return nil, usageError("<add|inc|dec|rm> <n>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(s.tiles) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("no product tile %q", args[0]))
	}
	return s.tiles[n-1], nil
}

func (s *shell) render() {
	fmt.Fprintf(s.out, "\n[cart: %d] %s\n", s.badge.Count(), s.app.facade.Mode())

	fmt.Fprintln(s.out, "products:")
	for i, tile := range s.tiles {
		product := tile.Product()
		marker := ""
		if !tile.CanIncrement() {
			marker = " (max)"
		}
		fmt.Fprintf(s.out, "  %d) %-22s %8s  in cart: %d%s\n", i+1, product.Name, money(product.Price), tile.Quantity(), marker)
		if err := tile.Err(); err != nil {
			fmt.Fprintf(s.out, "     ! %s\n", err)
		}
	}

	view := s.drawer.View()
	fmt.Fprintln(s.out, "drawer:")
	switch {
	case view.Loading:
		fmt.Fprintln(s.out, "  loading")
	case len(view.Lines) == 0:
		fmt.Fprintln(s.out, "  empty")
	default:
		for _, line := range view.Lines {
			fmt.Fprintf(s.out, "  %s  %s x%d  %s\n", line.LineID, line.ProductName, line.Quantity, money(line.LineTotal))
		}
		fmt.Fprintf(s.out, "  total %s (%d items)\n", money(view.TotalAmount), view.TotalQuantity)
	}
	if view.Err != nil {
		fmt.Fprintf(s.out, "  ! %s\n", view.Err)
	}
}

// displayError shows widget errors the way the widget does and everything
// else as its public message.
func displayError(err error) string {
	var uiErr *widgets.UIError
	if errors.As(err, &uiErr) {
		return uiErr.Message
	}
	if pkgerrors.As(err) != nil {
		return pkgerrors.PublicMessage(err)
	}
	return err.Error()
}

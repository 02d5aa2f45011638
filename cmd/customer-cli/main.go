// customer-cli is the ordering app: browse the menu, build a cart, place
// orders and follow them to the door.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shivdhaba/delivery-core/internal/auth"
	"github.com/shivdhaba/delivery-core/internal/cart"
	"github.com/shivdhaba/delivery-core/internal/cli"
	"github.com/shivdhaba/delivery-core/internal/customer"
	"github.com/shivdhaba/delivery-core/internal/viewsync"
	"github.com/shivdhaba/delivery-core/pkg/models"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type customerApp struct {
	*cli.App
	customer *customer.Repository
	cart     *cart.Cart

	// Cached order list, reconciled through the synchronizer after a
	// cancel.
	orders    *viewsync.List[models.Order]
	orderSync *viewsync.Synchronizer[models.Order]
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
		app        *customerApp
	)

	cmd := &cobra.Command{
		Use:           "customer-cli",
		Short:         "ShivDhaba ordering app",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			base, err := cli.Bootstrap(configPath, logLevel)
			if err != nil {
				return err
			}
			orders := viewsync.NewList(func(o models.Order) int64 { return o.ID })
			app = &customerApp{
				App:       base,
				customer:  customer.NewRepository(base.Client, base.Logger),
				cart:      cart.New(base.Storage, base.Logger),
				orders:    orders,
				orderSync: viewsync.NewSynchronizer(base.Logger, orders),
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				app.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		loginCmd(&app),
		menuCmd(&app),
		cartCmd(&app),
		addressCmd(&app),
		orderCmd(&app),
		myOrdersCmd(&app),
		statusCmd(&app),
		cancelCmd(&app),
	)

	return cmd
}

func loginCmd(app **customerApp) *cobra.Command {
	return &cobra.Command{
		Use:   "login <mobile>",
		Short: "Log in with an OTP sent to the given mobile number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			repo := auth.NewRepository(a.Client, a.Logger)
			ctx := cmd.Context()

			if err := repo.SendOtp(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to send OTP: %w", err)
			}

			otp, err := cli.Prompt("Enter OTP: ")
			if err != nil {
				return err
			}

			resp, err := repo.VerifyCustomerOtp(ctx, args[0], otp)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			if err := a.Auth.SetSession(*resp); err != nil {
				return err
			}

			fmt.Printf("Logged in as %s\n", resp.User.Name)
			return nil
		},
	}
}

func menuCmd(app **customerApp) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Browse the menu",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if err := a.RequireLogin(); err != nil {
				return err
			}

			categories, items, err := a.customer.Menu(cmd.Context())
			if err != nil {
				return err
			}

			byCategory := make(map[int64][]models.MenuItem)
			for _, item := range items {
				byCategory[item.CategoryID] = append(byCategory[item.CategoryID], item)
			}

			for _, c := range categories {
				fmt.Printf("%s\n", c.Name)
				for _, item := range byCategory[c.ID] {
					veg := "non-veg"
					if item.IsVeg {
						veg = "veg"
					}
					fmt.Printf("  #%d %-24s %8.2f  %s\n", item.ID, item.Name, item.Price, veg)
				}
			}
			return nil
		},
	}
}

func cartCmd(app **customerApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Manage the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if a.cart.IsEmpty() {
				fmt.Println("Cart is empty")
				return nil
			}
			for _, line := range a.cart.Lines() {
				note := ""
				if line.SpecialInstructions != "" {
					note = "  (" + line.SpecialInstructions + ")"
				}
				fmt.Printf("#%d %-24s x%d %8.2f%s\n",
					line.MenuItemID, line.Name, line.Quantity, line.LineTotal(), note)
			}
			fmt.Printf("Total: %.2f\n", a.cart.Total())
			return nil
		},
	}

	cmd.AddCommand(cartAddCmd(app), cartRemoveCmd(app), cartQuantityCmd(app), cartClearCmd(app))
	return cmd
}

func cartAddCmd(app **customerApp) *cobra.Command {
	var (
		quantity     int
		instructions string
	)
	cmd := &cobra.Command{
		Use:   "add <menu-item-id>",
		Short: "Add a menu item to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if err := a.RequireLogin(); err != nil {
				return err
			}

			itemID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid menu item id %q", args[0])
			}

			_, items, err := a.customer.Menu(cmd.Context())
			if err != nil {
				return err
			}
			for _, item := range items {
				if item.ID == itemID {
					a.cart.Add(item, quantity, instructions)
					fmt.Printf("Added %s x%d, cart total %.2f\n", item.Name, quantity, a.cart.Total())
					return nil
				}
			}
			return fmt.Errorf("menu item %d is not available", itemID)
		},
	}
	cmd.Flags().IntVar(&quantity, "qty", 1, "Quantity")
	cmd.Flags().StringVar(&instructions, "note", "", "Special instructions")
	return cmd
}

func cartRemoveCmd(app **customerApp) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <menu-item-id>",
		Short: "Remove an item from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			itemID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid menu item id %q", args[0])
			}
			a.cart.Remove(itemID)
			fmt.Printf("Removed, cart total %.2f\n", a.cart.Total())
			return nil
		},
	}
}

func cartQuantityCmd(app **customerApp) *cobra.Command {
	return &cobra.Command{
		Use:   "qty <menu-item-id> <quantity>",
		Short: "Change an item's quantity (0 removes it)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			itemID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid menu item id %q", args[0])
			}
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			a.cart.UpdateQuantity(itemID, quantity)
			fmt.Printf("Cart total %.2f\n", a.cart.Total())
			return nil
		},
	}
}

func cartClearCmd(app **customerApp) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			(*app).cart.Clear()
			fmt.Println("Cart cleared")
			return nil
		},
	}
}

func orderCmd(app **customerApp) *cobra.Command {
	var (
		address string
		city    string
		payment string
		note    string
	)
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Place an order from the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if err := a.RequireLogin(); err != nil {
				return err
			}

			if err := customer.ValidateOrder(a.cart.Lines(), customer.MinOrderAmount); err != nil {
				return err
			}

			req := models.PlaceOrderRequest{
				Items:               a.cart.OrderItems(),
				PaymentMethod:       models.PaymentMethod(payment),
				DeliveryAddress:     address,
				DeliveryCity:        city,
				SpecialInstructions: note,
			}
			if req.DeliveryAddress == "" {
				saved, ok := defaultAddress(a.Storage)
				if !ok {
					return fmt.Errorf("no delivery address given and no saved default")
				}
				req.DeliveryAddress = saved.Line
				req.DeliveryCity = saved.City
				req.DeliveryLatitude = saved.Latitude
				req.DeliveryLongitude = saved.Longitude
			}

			order, err := a.customer.PlaceOrder(cmd.Context(), req)
			if err != nil {
				return err
			}

			// The cart only empties once the backend has the order.
			a.cart.Clear()

			fmt.Printf("Order %s placed, total %.2f (%s)\n",
				order.OrderNumber, order.TotalAmount, order.PaymentMethod)
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "Delivery address (defaults to the saved default)")
	cmd.Flags().StringVar(&city, "city", "", "Delivery city")
	cmd.Flags().StringVar(&payment, "payment", string(models.PaymentCOD), "Payment method (COD or ONLINE)")
	cmd.Flags().StringVar(&note, "note", "", "Special instructions")
	return cmd
}

func myOrdersCmd(app **customerApp) *cobra.Command {
	return &cobra.Command{
		Use:   "my-orders",
		Short: "List your orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if err := a.RequireLogin(); err != nil {
				return err
			}

			orders, err := a.customer.ListMine(cmd.Context())
			if err != nil {
				return err
			}
			a.orders.Replace(orders)
			if len(orders) == 0 {
				fmt.Println("No orders yet")
				return nil
			}
			for _, o := range orders {
				fmt.Printf("#%d  %s  %-16s  %.2f  %s\n",
					o.ID, o.OrderNumber, o.Status, o.TotalAmount, o.CreatedAt)
			}
			return nil
		},
	}
}

func statusCmd(app **customerApp) *cobra.Command {
	return &cobra.Command{
		Use:   "status <order-id>",
		Short: "Show one order in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if err := a.RequireLogin(); err != nil {
				return err
			}

			orderID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid order id %q", args[0])
			}

			order, err := a.customer.GetOrder(cmd.Context(), orderID)
			if err != nil {
				return err
			}

			fmt.Printf("Order %s  %s\n", order.OrderNumber, order.Status)
			for _, item := range order.Items {
				fmt.Printf("  %-24s x%d %8.2f\n", item.MenuItemName, item.Quantity, item.Subtotal)
			}
			fmt.Printf("Subtotal: %.2f  Delivery: %.2f  Total: %.2f\n",
				order.Subtotal, order.DeliveryCharge, order.TotalAmount)
			if order.DeliveryBoyName != "" {
				fmt.Printf("Courier: %s (%s)\n", order.DeliveryBoyName, order.DeliveryBoyMobile)
			}
			return nil
		},
	}
}

func cancelCmd(app **customerApp) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <order-id>",
		Short: "Cancel an order the restaurant has not accepted yet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if err := a.RequireLogin(); err != nil {
				return err
			}

			orderID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid order id %q", args[0])
			}

			current, err := a.customer.GetOrder(cmd.Context(), orderID)
			if err != nil {
				return err
			}

			order, err := a.orderSync.Mutate(cmd.Context(), func(ctx context.Context) (models.Order, error) {
				updated, err := a.customer.Cancel(ctx, *current)
				if err != nil {
					return models.Order{}, err
				}
				return *updated, nil
			})
			if err != nil {
				return err
			}
			fmt.Printf("Order %s cancelled\n", order.OrderNumber)
			return nil
		},
	}
}

// admin-cli is the restaurant-side app: the order workflow from acceptance
// to handover, menu management and the sales dashboard.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shivdhaba/delivery-core/internal/admin"
	"github.com/shivdhaba/delivery-core/internal/auth"
	"github.com/shivdhaba/delivery-core/internal/cli"
	"github.com/shivdhaba/delivery-core/internal/lifecycle"
	"github.com/shivdhaba/delivery-core/internal/viewsync"
	"github.com/shivdhaba/delivery-core/pkg/models"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type adminApp struct {
	*cli.App
	admin *admin.Repository

	// Cached screen lists, reconciled through the synchronizers after
	// every mutation.
	orders     *viewsync.List[models.Order]
	categories *viewsync.List[models.Category]
	items      *viewsync.List[models.MenuItem]
	orderSync  *viewsync.Synchronizer[models.Order]
	catSync    *viewsync.Synchronizer[models.Category]
	itemSync   *viewsync.Synchronizer[models.MenuItem]
}

// syncMutate folds a successful repository mutation back into every cached
// list registered with the synchronizer. Failures leave the lists as they
// were.
func syncMutate[T any](ctx context.Context, s *viewsync.Synchronizer[T], mutate func(context.Context) (*T, error)) (*T, error) {
	out, err := s.Mutate(ctx, func(ctx context.Context) (T, error) {
		updated, err := mutate(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		return *updated, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
		app        *adminApp
	)

	cmd := &cobra.Command{
		Use:           "admin-cli",
		Short:         "ShivDhaba restaurant admin app",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			base, err := cli.Bootstrap(configPath, logLevel)
			if err != nil {
				return err
			}
			orders := viewsync.NewList(func(o models.Order) int64 { return o.ID })
			categories := viewsync.NewList(func(c models.Category) int64 { return c.ID })
			items := viewsync.NewList(func(i models.MenuItem) int64 { return i.ID })
			app = &adminApp{
				App:        base,
				admin:      admin.NewRepository(base.Client, base.Logger),
				orders:     orders,
				categories: categories,
				items:      items,
				orderSync:  viewsync.NewSynchronizer(base.Logger, orders),
				catSync:    viewsync.NewSynchronizer(base.Logger, categories),
				itemSync:   viewsync.NewSynchronizer(base.Logger, items),
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
		ordersCmd(&app),
		acceptCmd(&app),
		rejectCmd(&app),
		advanceCmd(&app),
		assignCmd(&app),
		dashboardCmd(&app),
		salesCmd(&app),
		menuCmd(&app),
		deliveryBoysCmd(&app),
	)

	return cmd
}

func loginCmd(app **adminApp) *cobra.Command {
	return &cobra.Command{
		Use:   "login <mobile>",
		Short: "Log in with an OTP sent to the given mobile number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			repo := auth.NewRepository(a.Client, a.Logger)
			ctx := cmd.Context()

			if err := repo.SendAdminOtp(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to send OTP: %w", err)
			}

			otp, err := cli.Prompt("Enter OTP: ")
			if err != nil {
				return err
			}

			resp, err := repo.VerifyAdminOtp(ctx, args[0], otp)
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

func ordersCmd(app **adminApp) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List orders, optionally filtered by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if err := a.RequireLogin(); err != nil {
				return err
			}

			list, err := a.admin.ListOrders(cmd.Context(), models.OrderStatus(status))
			if err != nil {
				return err
			}
			a.orders.Replace(list)
			if len(list) == 0 {
				fmt.Println("No orders")
				return nil
			}
			for _, o := range list {
				fmt.Printf("#%d  %s  %-16s  %.2f  %s  %s\n",
					o.ID, o.OrderNumber, o.Status, o.TotalAmount, o.CustomerName, o.CreatedAt)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by order status")
	return cmd
}

func (a *adminApp) getOrder(ctx context.Context, arg string) (*models.Order, error) {
	orderID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid order id %q", arg)
	}
	return a.admin.GetOrder(ctx, orderID)
}

func acceptCmd(app **adminApp) *cobra.Command {
	return &cobra.Command{
		Use:   "accept <order-id>",
		Short: "Accept a placed order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if err := a.RequireLogin(); err != nil {
				return err
			}

			current, err := a.getOrder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			order, err := syncMutate(cmd.Context(), a.orderSync, func(ctx context.Context) (*models.Order, error) {
				return a.admin.Accept(ctx, *current)
			})
			if err != nil {
				return err
			}
			fmt.Printf("Order %s is now %s\n", order.OrderNumber, order.Status)
			return nil
		},
	}
}

func rejectCmd(app **adminApp) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "reject <order-id>",
		Short: "Reject a placed order with a reason",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if err := a.RequireLogin(); err != nil {
				return err
			}

			current, err := a.getOrder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			order, err := syncMutate(cmd.Context(), a.orderSync, func(ctx context.Context) (*models.Order, error) {
				return a.admin.Reject(ctx, *current, reason)
			})
			if err != nil {
				return err
			}
			fmt.Printf("Order %s rejected\n", order.OrderNumber)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Reason shown to the customer")
	return cmd
}

func advanceCmd(app **adminApp) *cobra.Command {
	return &cobra.Command{
		Use:   "advance <order-id>",
		Short: "Move an order to its next kitchen stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if err := a.RequireLogin(); err != nil {
				return err
			}

			current, err := a.getOrder(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			next, ok := lifecycle.NextStatus(current.Status, lifecycle.RoleAdmin)
			if !ok {
				return fmt.Errorf("order %d has no next stage from %s", current.ID, current.Status)
			}

			order, err := syncMutate(cmd.Context(), a.orderSync, func(ctx context.Context) (*models.Order, error) {
				return a.admin.UpdateStatus(ctx, *current, next)
			})
			if err != nil {
				return err
			}
			fmt.Printf("Order %s is now %s\n", order.OrderNumber, order.Status)
			return nil
		},
	}
}

func assignCmd(app **adminApp) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <order-id> <delivery-boy-id>",
		Short: "Assign a ready order to a delivery boy",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if err := a.RequireLogin(); err != nil {
				return err
			}

			boyID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid delivery boy id %q", args[1])
			}

			current, err := a.getOrder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			order, err := syncMutate(cmd.Context(), a.orderSync, func(ctx context.Context) (*models.Order, error) {
				return a.admin.AssignDelivery(ctx, *current, boyID)
			})
			if err != nil {
				return err
			}
			fmt.Printf("Order %s assigned to %s\n", order.OrderNumber, order.DeliveryBoyName)
			return nil
		},
	}
}

func dashboardCmd(app **adminApp) *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show order and revenue stats for a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if err := a.RequireLogin(); err != nil {
				return err
			}

			stats, err := a.admin.DashboardStats(cmd.Context(), period)
			if err != nil {
				return err
			}
			fmt.Printf("Period: %s\n", stats.Period)
			fmt.Printf("Total orders:     %d\n", stats.TotalOrders)
			fmt.Printf("Pending orders:   %d\n", stats.PendingOrders)
			fmt.Printf("Completed orders: %d\n", stats.CompletedOrders)
			fmt.Printf("Rejected orders:  %d\n", stats.RejectedOrders)
			fmt.Printf("Revenue:          %.2f\n", stats.TotalRevenue)
			return nil
		},
	}
	cmd.Flags().StringVar(&period, "period", "today", "Reporting period (today, week, month)")
	return cmd
}

func salesCmd(app **adminApp) *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "sales",
		Short: "Show the per-day sales report",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if err := a.RequireLogin(); err != nil {
				return err
			}

			report, err := a.admin.SalesReport(cmd.Context(), period)
			if err != nil {
				return err
			}
			for _, row := range report {
				fmt.Printf("%s  %4d orders  %10.2f\n", row.Date, row.OrderCount, row.Revenue)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&period, "period", "week", "Reporting period (today, week, month)")
	return cmd
}

func deliveryBoysCmd(app **adminApp) *cobra.Command {
	return &cobra.Command{
		Use:   "delivery-boys",
		Short: "List delivery staff and their duty status",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if err := a.RequireLogin(); err != nil {
				return err
			}

			boys, err := a.admin.ListDeliveryBoys(cmd.Context())
			if err != nil {
				return err
			}
			for _, b := range boys {
				fmt.Printf("#%d  %-20s  %s  on-duty=%v available=%v\n",
					b.ID, b.Name, b.Mobile, b.IsOnDuty, b.IsAvailable)
			}
			return nil
		},
	}
}

// delivery-cli is the courier-side app: duty toggling, picking up ready
// orders, live location tracking and handover.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shivdhaba/delivery-core/internal/auth"
	"github.com/shivdhaba/delivery-core/internal/cli"
	"github.com/shivdhaba/delivery-core/internal/lifecycle"
	"github.com/shivdhaba/delivery-core/internal/location"
	"github.com/shivdhaba/delivery-core/internal/orders"
	"github.com/shivdhaba/delivery-core/internal/viewsync"
	"github.com/shivdhaba/delivery-core/pkg/models"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type deliveryApp struct {
	*cli.App
	orders    *orders.Repository
	available *viewsync.List[models.Order]
	mine      *viewsync.List[models.Order]
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
		app        *deliveryApp
	)

	cmd := &cobra.Command{
		Use:           "delivery-cli",
		Short:         "ShivDhaba courier app",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			base, err := cli.Bootstrap(configPath, logLevel)
			if err != nil {
				return err
			}
			available := viewsync.NewList(func(o models.Order) int64 { return o.ID })
			mine := viewsync.NewList(func(o models.Order) int64 { return o.ID })
			app = &deliveryApp{
				App:       base,
				orders:    orders.NewRepository(base.Client, base.Logger, available, mine),
				available: available,
				mine:      mine,
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
		logoutCmd(&app),
		dutyCmd(&app),
		availableCmd(&app),
		myOrdersCmd(&app),
		acceptCmd(&app),
		deliverCmd(&app),
		trackCmd(&app),
	)

	return cmd
}

func loginCmd(app **deliveryApp) *cobra.Command {
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

			resp, err := repo.VerifyDeliveryOtp(ctx, args[0], otp)
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

func logoutCmd(app **deliveryApp) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the local session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (*app).Auth.Clear(); err != nil {
				return err
			}
			fmt.Println("Logged out")
			return nil
		},
	}
}

func dutyCmd(app **deliveryApp) *cobra.Command {
	var onDuty bool
	cmd := &cobra.Command{
		Use:   "duty",
		Short: "Toggle duty and availability status",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if err := a.RequireLogin(); err != nil {
				return err
			}

			status, err := a.orders.UpdateStatus(cmd.Context(), models.DeliveryBoyStatus{
				IsAvailable: onDuty,
				IsOnDuty:    onDuty,
			})
			if err != nil {
				return err
			}
			fmt.Printf("On duty: %v, available: %v\n", status.IsOnDuty, status.IsAvailable)
			return nil
		},
	}
	cmd.Flags().BoolVar(&onDuty, "on", false, "Go on duty (omit to go off duty)")
	return cmd
}

func availableCmd(app **deliveryApp) *cobra.Command {
	return &cobra.Command{
		Use:   "available",
		Short: "List orders ready for pickup",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if err := a.RequireLogin(); err != nil {
				return err
			}

			list, err := a.orders.ListAvailable(cmd.Context())
			if err != nil {
				return err
			}
			a.available.Replace(list)
			printOrders(list)
			return nil
		},
	}
}

func myOrdersCmd(app **deliveryApp) *cobra.Command {
	return &cobra.Command{
		Use:   "my-orders",
		Short: "List orders assigned to you",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if err := a.RequireLogin(); err != nil {
				return err
			}

			list, err := a.orders.ListMine(cmd.Context())
			if err != nil {
				return err
			}
			a.mine.Replace(list)
			printOrders(list)
			return nil
		},
	}
}

func acceptCmd(app **deliveryApp) *cobra.Command {
	return &cobra.Command{
		Use:   "accept <order-id>",
		Short: "Accept a ready order and go out for delivery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if err := a.RequireLogin(); err != nil {
				return err
			}

			current, err := a.lookupOrder(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			order, err := a.orders.Accept(cmd.Context(), *current)
			if err != nil {
				return err
			}
			fmt.Printf("Order %s accepted, now %s\n", order.OrderNumber, order.Status)
			return nil
		},
	}
}

func deliverCmd(app **deliveryApp) *cobra.Command {
	return &cobra.Command{
		Use:   "deliver <order-id>",
		Short: "Mark an order as delivered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if err := a.RequireLogin(); err != nil {
				return err
			}

			current, err := a.lookupOrder(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			// Cash confirmation is a reminder for the courier, never a
			// precondition for the handover itself.
			if lifecycle.RequiresCashConfirmation(current.PaymentMethod, models.StatusDelivered) {
				if !cli.Confirm(fmt.Sprintf("Collect %.2f in cash. Collected?", current.TotalAmount)) {
					fmt.Println("Reminder noted, completing delivery anyway.")
				}
			}

			order, err := a.orders.Deliver(cmd.Context(), *current)
			if err != nil {
				return err
			}
			fmt.Printf("Order %s delivered\n", order.OrderNumber)
			return nil
		},
	}
}

func trackCmd(app **deliveryApp) *cobra.Command {
	return &cobra.Command{
		Use:   "track <order-id>",
		Short: "Stream your position for an order (reads \"lat,lng\" lines from stdin)",
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

			current, err := a.orders.GetDetails(cmd.Context(), orderID)
			if err != nil {
				return err
			}
			if current.Status != models.StatusOutForDelivery {
				return fmt.Errorf("order %d is %s, tracking only runs while out for delivery",
					orderID, current.Status)
			}

			source := newStdinSource(os.Stdin)
			tracker := location.NewTracker(source, a.orders, location.Config{
				SampleInterval:        a.Config.Location.SampleInterval,
				UploadInterval:        a.Config.Location.UploadInterval,
				MinDisplacementMeters: a.Config.Location.MinDisplacementMeters,
			}, a.Logger)

			tracker.Start(cmd.Context(), orderID)
			defer tracker.Stop()

			fmt.Println("Tracking started, enter \"lat,lng\" lines (Ctrl-D to stop):")
			<-source.doneReading()

			if current.DeliveryLatitude != nil && current.DeliveryLongitude != nil {
				if dist, ok := tracker.DistanceToMeters(*current.DeliveryLatitude, *current.DeliveryLongitude); ok {
					fmt.Printf("Distance to drop point: %.0f m\n", dist)
				}
			}
			return nil
		},
	}
}

// lookupOrder resolves an id against the courier's order lists so the
// lifecycle guard sees the freshest known status.
func (a *deliveryApp) lookupOrder(ctx context.Context, arg string) (*models.Order, error) {
	orderID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid order id %q", arg)
	}

	available, err := a.orders.ListAvailable(ctx)
	if err == nil {
		for i := range available {
			if available[i].ID == orderID {
				return &available[i], nil
			}
		}
	}
	return a.orders.GetDetails(ctx, orderID)
}

func printOrders(list []models.Order) {
	if len(list) == 0 {
		fmt.Println("No orders")
		return
	}
	for _, o := range list {
		fmt.Printf("#%d  %s  %-16s  %.2f  %s  %s\n",
			o.ID, o.OrderNumber, o.Status, o.TotalAmount, o.PaymentMethod, o.DeliveryAddress)
	}
}

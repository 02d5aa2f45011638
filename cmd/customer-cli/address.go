package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shivdhaba/delivery-core/internal/storage"
	"github.com/shivdhaba/delivery-core/pkg/models"
)

// The address book lives on the device; the backend only ever sees the
// address text on the order itself.

func loadAddresses(st *storage.Store) []models.Address {
	var addresses []models.Address
	st.GetJSON(storage.KeySavedAddresses, &addresses)
	return addresses
}

func saveAddresses(st *storage.Store, addresses []models.Address) error {
	return st.SetJSON(storage.KeySavedAddresses, addresses)
}

func defaultAddress(st *storage.Store) (models.Address, bool) {
	addresses := loadAddresses(st)
	for _, a := range addresses {
		if a.IsDefault {
			return a, true
		}
	}
	if len(addresses) > 0 {
		return addresses[0], true
	}
	return models.Address{}, false
}

func addressCmd(app **customerApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "address",
		Short: "Manage saved delivery addresses",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			addresses := loadAddresses(a.Storage)
			if len(addresses) == 0 {
				fmt.Println("No saved addresses")
				return nil
			}
			for _, addr := range addresses {
				marker := ""
				if addr.IsDefault {
					marker = " (default)"
				}
				fmt.Printf("#%d %-12s %s, %s%s\n", addr.ID, addr.Label, addr.Line, addr.City, marker)
			}
			return nil
		},
	}

	cmd.AddCommand(addressAddCmd(app), addressRemoveCmd(app), addressDefaultCmd(app))
	return cmd
}

func addressAddCmd(app **customerApp) *cobra.Command {
	var addr models.Address
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Save a delivery address",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			addresses := loadAddresses(a.Storage)

			var maxID int64
			for _, existing := range addresses {
				if existing.ID > maxID {
					maxID = existing.ID
				}
			}
			addr.ID = maxID + 1
			addr.IsDefault = len(addresses) == 0

			if err := saveAddresses(a.Storage, append(addresses, addr)); err != nil {
				return err
			}
			fmt.Printf("Saved address #%d %s\n", addr.ID, addr.Label)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr.Label, "label", "Home", "Short label")
	cmd.Flags().StringVar(&addr.Line, "line", "", "Street address")
	cmd.Flags().StringVar(&addr.City, "city", "", "City")
	cmd.MarkFlagRequired("line")
	return cmd
}

func addressRemoveCmd(app **customerApp) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <address-id>",
		Short: "Delete a saved address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid address id %q", args[0])
			}

			addresses := loadAddresses(a.Storage)
			kept := addresses[:0]
			for _, addr := range addresses {
				if addr.ID != id {
					kept = append(kept, addr)
				}
			}
			if len(kept) == len(addresses) {
				return fmt.Errorf("no saved address with id %d", id)
			}
			if err := saveAddresses(a.Storage, kept); err != nil {
				return err
			}
			fmt.Println("Address removed")
			return nil
		},
	}
}

func addressDefaultCmd(app **customerApp) *cobra.Command {
	return &cobra.Command{
		Use:   "default <address-id>",
		Short: "Mark a saved address as the default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid address id %q", args[0])
			}

			addresses := loadAddresses(a.Storage)
			found := false
			for i := range addresses {
				addresses[i].IsDefault = addresses[i].ID == id
				if addresses[i].IsDefault {
					found = true
				}
			}
			if !found {
				return fmt.Errorf("no saved address with id %d", id)
			}
			if err := saveAddresses(a.Storage, addresses); err != nil {
				return err
			}
			fmt.Println("Default address updated")
			return nil
		},
	}
}

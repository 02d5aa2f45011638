package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shivdhaba/delivery-core/pkg/models"
)

func menuCmd(app **adminApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Manage categories and menu items",
	}

	cmd.AddCommand(
		menuListCmd(app),
		categoryAddCmd(app),
		categoryUpdateCmd(app),
		categoryDeleteCmd(app),
		categoryToggleCmd(app),
		itemAddCmd(app),
		itemUpdateCmd(app),
		itemDeleteCmd(app),
		itemToggleCmd(app),
	)
	return cmd
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s id %q", what, arg)
	}
	return id, nil
}

func menuListCmd(app **adminApp) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories and items, including inactive ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if err := a.RequireLogin(); err != nil {
				return err
			}

			categories, err := a.admin.ListCategories(cmd.Context())
			if err != nil {
				return err
			}
			items, err := a.admin.ListMenuItems(cmd.Context())
			if err != nil {
				return err
			}
			a.categories.Replace(categories)
			a.items.Replace(items)

			byCategory := make(map[int64][]models.MenuItem)
			for _, item := range items {
				byCategory[item.CategoryID] = append(byCategory[item.CategoryID], item)
			}

			for _, c := range categories {
				marker := ""
				if !c.IsActive {
					marker = " (inactive)"
				}
				fmt.Printf("[%d] %s%s\n", c.ID, c.Name, marker)
				for _, item := range byCategory[c.ID] {
					availability := ""
					if !item.IsAvailable {
						availability = " (unavailable)"
					}
					fmt.Printf("    #%d %-24s %8.2f%s\n", item.ID, item.Name, item.Price, availability)
				}
			}
			return nil
		},
	}
}

func categoryFlags(cmd *cobra.Command, req *models.CategoryRequest) {
	cmd.Flags().StringVar(&req.Name, "name", "", "Category name")
	cmd.Flags().StringVar(&req.Description, "description", "", "Category description")
	cmd.Flags().StringVar(&req.ImageURL, "image-url", "", "Category image URL")
	cmd.Flags().IntVar(&req.DisplayOrder, "order", 0, "Display order")
}

func categoryAddCmd(app **adminApp) *cobra.Command {
	var req models.CategoryRequest
	cmd := &cobra.Command{
		Use:   "category-add",
		Short: "Create a category",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if err := a.RequireLogin(); err != nil {
				return err
			}
			category, err := a.admin.CreateCategory(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Printf("Created category [%d] %s\n", category.ID, category.Name)
			return nil
		},
	}
	categoryFlags(cmd, &req)
	cmd.MarkFlagRequired("name")
	return cmd
}

func categoryUpdateCmd(app **adminApp) *cobra.Command {
	var req models.CategoryRequest
	cmd := &cobra.Command{
		Use:   "category-update <category-id>",
		Short: "Update a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if err := a.RequireLogin(); err != nil {
				return err
			}
			id, err := parseID(args[0], "category")
			if err != nil {
				return err
			}
			category, err := syncMutate(cmd.Context(), a.catSync, func(ctx context.Context) (*models.Category, error) {
				return a.admin.UpdateCategory(ctx, id, req)
			})
			if err != nil {
				return err
			}
			fmt.Printf("Updated category [%d] %s\n", category.ID, category.Name)
			return nil
		},
	}
	categoryFlags(cmd, &req)
	cmd.MarkFlagRequired("name")
	return cmd
}

func categoryDeleteCmd(app **adminApp) *cobra.Command {
	return &cobra.Command{
		Use:   "category-delete <category-id>",
		Short: "Delete a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if err := a.RequireLogin(); err != nil {
				return err
			}
			id, err := parseID(args[0], "category")
			if err != nil {
				return err
			}
			err = a.catSync.MutateDelete(cmd.Context(), id, func(ctx context.Context) error {
				return a.admin.DeleteCategory(ctx, id)
			})
			if err != nil {
				return err
			}
			fmt.Println("Category deleted")
			return nil
		},
	}
}

func categoryToggleCmd(app **adminApp) *cobra.Command {
	return &cobra.Command{
		Use:   "category-toggle <category-id>",
		Short: "Toggle a category's visibility",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if err := a.RequireLogin(); err != nil {
				return err
			}
			id, err := parseID(args[0], "category")
			if err != nil {
				return err
			}
			category, err := syncMutate(cmd.Context(), a.catSync, func(ctx context.Context) (*models.Category, error) {
				return a.admin.ToggleCategory(ctx, id)
			})
			if err != nil {
				return err
			}
			fmt.Printf("Category [%d] active=%v\n", category.ID, category.IsActive)
			return nil
		},
	}
}

func itemFlags(cmd *cobra.Command, req *models.MenuItemRequest) {
	cmd.Flags().Int64Var(&req.CategoryID, "category", 0, "Category id")
	cmd.Flags().StringVar(&req.Name, "name", "", "Item name")
	cmd.Flags().StringVar(&req.Description, "description", "", "Item description")
	cmd.Flags().Float64Var(&req.Price, "price", 0, "Item price")
	cmd.Flags().StringVar(&req.ImageURL, "image-url", "", "Item image URL")
	cmd.Flags().BoolVar(&req.IsVeg, "veg", true, "Vegetarian item")
}

func itemAddCmd(app **adminApp) *cobra.Command {
	var req models.MenuItemRequest
	cmd := &cobra.Command{
		Use:   "item-add",
		Short: "Create a menu item",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if err := a.RequireLogin(); err != nil {
				return err
			}
			item, err := a.admin.CreateMenuItem(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Printf("Created item #%d %s (%.2f)\n", item.ID, item.Name, item.Price)
			return nil
		},
	}
	itemFlags(cmd, &req)
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("category")
	cmd.MarkFlagRequired("price")
	return cmd
}

func itemUpdateCmd(app **adminApp) *cobra.Command {
	var req models.MenuItemRequest
	cmd := &cobra.Command{
		Use:   "item-update <item-id>",
		Short: "Update a menu item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if err := a.RequireLogin(); err != nil {
				return err
			}
			id, err := parseID(args[0], "menu item")
			if err != nil {
				return err
			}
			item, err := syncMutate(cmd.Context(), a.itemSync, func(ctx context.Context) (*models.MenuItem, error) {
				return a.admin.UpdateMenuItem(ctx, id, req)
			})
			if err != nil {
				return err
			}
			fmt.Printf("Updated item #%d %s (%.2f)\n", item.ID, item.Name, item.Price)
			return nil
		},
	}
	itemFlags(cmd, &req)
	cmd.MarkFlagRequired("name")
	return cmd
}

func itemDeleteCmd(app **adminApp) *cobra.Command {
	return &cobra.Command{
		Use:   "item-delete <item-id>",
		Short: "Delete a menu item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if err := a.RequireLogin(); err != nil {
				return err
			}
			id, err := parseID(args[0], "menu item")
			if err != nil {
				return err
			}
			err = a.itemSync.MutateDelete(cmd.Context(), id, func(ctx context.Context) error {
				return a.admin.DeleteMenuItem(ctx, id)
			})
			if err != nil {
				return err
			}
			fmt.Println("Menu item deleted")
			return nil
		},
	}
}

func itemToggleCmd(app **adminApp) *cobra.Command {
	return &cobra.Command{
		Use:   "item-toggle <item-id>",
		Short: "Toggle a menu item's availability",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if err := a.RequireLogin(); err != nil {
				return err
			}
			id, err := parseID(args[0], "menu item")
			if err != nil {
				return err
			}
			item, err := syncMutate(cmd.Context(), a.itemSync, func(ctx context.Context) (*models.MenuItem, error) {
				return a.admin.ToggleMenuItem(ctx, id)
			})
			if err != nil {
				return err
			}
			fmt.Printf("Item #%d available=%v\n", item.ID, item.IsAvailable)
			return nil
		},
	}
}

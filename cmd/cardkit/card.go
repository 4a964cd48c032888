// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"cardkit/pkg/resname"
)

var (
	// cardCreateType is the card type of the new card.
	cardCreateType string

	// cardCreateParent nests the new card under an existing card.
	cardCreateParent string
)

// cardCmd represents the card command group.
var cardCmd = &cobra.Command{
	Use:   "card",
	Short: "Manage project cards",
	Long: `Create and list the project's cards.

Card keys are generated from the project's card key prefix and a counter
kept in the project configuration.

Examples:
  cardkit card create "Fix login crash" --type cardTypes/bug
  cardkit card list`,
}

// cardCreateCmd creates a new project card.
var cardCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a card",
	Long: `Create a project card with a generated key.

Examples:
  cardkit card create "Fix login crash" --type cardTypes/bug
  cardkit card create "Investigate root cause" --type cardTypes/task --parent PROJ-4`,
	Args: cobra.ExactArgs(1),
	RunE: runCardCreate,
}

// cardListCmd lists the project's cards.
var cardListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cards",
	Long: `List the project's cards sorted by key.

Examples:
  cardkit card list`,
	RunE: runCardList,
}

func init() {
	cardCmd.AddCommand(cardCreateCmd)
	cardCmd.AddCommand(cardListCmd)

	cardCreateCmd.Flags().StringVar(&cardCreateType, "type", "", "card type of the new card (required)")
	cardCreateCmd.Flags().StringVar(&cardCreateParent, "parent", "", "key of the parent card")
	_ = cardCreateCmd.MarkFlagRequired("type")
}

func runCardCreate(cmd *cobra.Command, args []string) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.Close()

	cardType, err := parseResourceName(p, cardCreateType)
	if err != nil {
		return err
	}
	if cardType.Type != resname.CardTypeType {
		return fmt.Errorf("'%s' is not a card type", cardType)
	}

	c, err := p.CreateCard(cardCreateParent, args[0], cardType)
	if err != nil {
		return err
	}
	fmt.Printf("%s Created card %s\n", successIcon, ResourceStyle.Render(c.Key))
	return nil
}

func runCardList(cmd *cobra.Command, args []string) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.Close()

	cards, err := p.Cards().ProjectCards()
	if err != nil {
		return err
	}
	if len(cards) == 0 {
		fmt.Printf("%s No cards found\n", infoIcon)
		return nil
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].Key < cards[j].Key })
	for _, c := range cards {
		title, _ := c.Metadata["title"].(string)
		fmt.Printf("%s %s %s\n", infoIcon, ResourceStyle.Render(c.Key), title)
	}
	return nil
}

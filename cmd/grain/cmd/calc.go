package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/psantana5/grain/internal/costing"
)

var (
	calcWidth     float64
	calcThickness float64
	calcLength    float64
	calcUnit      string
	calcQuantity  float64
	calcPrice     float64
	calcPackage   float64
)

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Offline calculators",
}

var calcBoardFeetCmd = &cobra.Command{
	Use:   "board-feet",
	Short: "Board feet of a set of boards",
	Example: `  grain calc board-feet --width 6 --thickness 1 --length 8 --unit ft --quantity 3
  grain calc board-feet -w 20 -t 2.5 -l 3 -u vara`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if calcWidth <= 0 || calcThickness <= 0 || calcLength <= 0 || calcQuantity <= 0 {
			return fmt.Errorf("width, thickness, length and quantity must be positive")
		}
		unit, err := costing.ParseLengthUnit(calcUnit)
		if err != nil {
			return err
		}
		inches, _ := costing.ToInches(calcLength, unit)
		bf := costing.BoardFeet(calcWidth, calcThickness, inches, calcQuantity)

		out := map[string]interface{}{
			"width": calcWidth, "thickness": calcThickness, "length": calcLength, "unit": string(unit),
			"quantity": calcQuantity, "lengthInches": inches, "boardFeet": bf,
		}
		if calcPrice > 0 {
			out["pricePerBoardFoot"] = calcPrice
			out["cost"] = costing.RoundMoney(bf * calcPrice)
		}
		return render(stdout(cmd), outputFormat, out, func(w io.Writer) error {
			rows := [][2]string{
				{"Length", fmt.Sprintf("%s in", text(inches))},
				{"Board feet", text(bf)},
			}
			if calcPrice > 0 {
				rows = append(rows, [2]string{"Cost", money(bf * calcPrice)})
			}
			return renderFields(w, rows)
		})
	},
}

var calcUnitPriceCmd = &cobra.Command{
	Use:     "unit-price",
	Short:   "Price of one unit out of a package",
	Example: `  grain calc unit-price --price 12.50 --package 100`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if calcPrice < 0 || calcPackage < 0 {
			return fmt.Errorf("price and package size must not be negative")
		}
		unit := costing.UnitPrice(calcPrice, calcPackage)
		out := map[string]interface{}{"packagePrice": calcPrice, "packageQuantity": calcPackage, "unitPrice": unit}
		return render(stdout(cmd), outputFormat, out, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "%s per unit\n", money(unit))
			return err
		})
	},
}

func init() {
	f := calcBoardFeetCmd.Flags()
	f.Float64VarP(&calcWidth, "width", "w", 0, "board width in inches")
	f.Float64VarP(&calcThickness, "thickness", "t", 0, "board thickness in inches")
	f.Float64VarP(&calcLength, "length", "l", 0, "board length in --unit")
	f.StringVarP(&calcUnit, "unit", "u", "in", "length unit: in, ft, yd, vara, cm or m")
	f.Float64VarP(&calcQuantity, "quantity", "q", 1, "number of boards")
	f.Float64Var(&calcPrice, "price", 0, "price per board foot, to also show the cost")

	u := calcUnitPriceCmd.Flags()
	u.Float64Var(&calcPrice, "price", 0, "package price")
	u.Float64Var(&calcPackage, "package", 0, "units per package")
	_ = calcUnitPriceCmd.MarkFlagRequired("price")
	_ = calcUnitPriceCmd.MarkFlagRequired("package")

	calcCmd.AddCommand(calcBoardFeetCmd, calcUnitPriceCmd)
	rootCmd.AddCommand(calcCmd)
}

// Command genfake writes a synthetic customer CSV for exercising the
// dashboard without real subscriber data.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
)

var complaints = []string{
	"Frequent call drops and poor voice clarity",
	"Internet speed is too slow during peak hours",
	"Billing issue: charged twice this month",
	"Customer support didn't resolve my issue",
	"Frequent disconnections in internet service",
	"Plan renewal failed despite payment",
	"Network coverage is poor in my area",
	"High latency during video streaming",
	"Unable to log in to customer portal",
	"Received incorrect bill amount",
}

var header = []string{
	"customerID", "gender", "SeniorCitizen", "Partner", "Dependents",
	"tenure", "PhoneService", "MultipleLines", "InternetService",
	"OnlineSecurity", "OnlineBackup", "DeviceProtection", "TechSupport",
	"StreamingTV", "StreamingMovies", "Contract", "PaperlessBilling",
	"PaymentMethod", "MonthlyCharges", "TotalCharges", "email", "complaint",
}

func main() {
	out := flag.String("out", "test_customers.csv", "output file")
	n := flag.Int("n", 20, "number of customers")
	seed := flag.Int64("seed", 41, "random seed")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	f, err := os.Create(*out)
	if err != nil {
		fmt.Fprintln(os.Stderr, "create output:", err)
		os.Exit(1)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		fmt.Fprintln(os.Stderr, "write header:", err)
		os.Exit(1)
	}

	yesNo := []string{"Yes", "No"}
	internetOpt := []string{"Yes", "No", "No internet service"}

	for i := 1; i <= *n; i++ {
		id := fmt.Sprintf("%04d-TEST", i)
		email := strings.ToLower(strings.TrimSuffix(id, "-TEST")) + "@telecommail.com"
		row := []string{
			id,
			pick(rng, "Male", "Female"),
			strconv.Itoa(rng.Intn(2)),
			pick(rng, yesNo...),
			pick(rng, yesNo...),
			strconv.Itoa(1 + rng.Intn(71)),
			pick(rng, yesNo...),
			pick(rng, "Yes", "No", "No phone service"),
			pick(rng, "DSL", "Fiber optic", "No"),
			pick(rng, internetOpt...),
			pick(rng, internetOpt...),
			pick(rng, internetOpt...),
			pick(rng, internetOpt...),
			pick(rng, internetOpt...),
			pick(rng, internetOpt...),
			pick(rng, "Month-to-month", "One year", "Two year"),
			pick(rng, yesNo...),
			pick(rng, "Electronic check", "Mailed check", "Bank transfer (automatic)", "Credit card (automatic)"),
			strconv.FormatFloat(20+rng.Float64()*100, 'f', 2, 64),
			strconv.FormatFloat(100+rng.Float64()*7900, 'f', 2, 64),
			email,
			complaints[rng.Intn(len(complaints))],
		}
		if err := w.Write(row); err != nil {
			fmt.Fprintln(os.Stderr, "write row:", err)
			os.Exit(1)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		fmt.Fprintln(os.Stderr, "flush:", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %d customers to %s\n", *n, *out)
}

func pick(rng *rand.Rand, options ...string) string {
	return options[rng.Intn(len(options))]
}

package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/md-rashed-zaman/dentanova/libs/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const dateLayout = "2006-01-02"

var contactMethods = []string{"whatsapp", "call"}

var patients = [][2]string{
	{"Ana", "Lopez"},
	{"Luis", "Martinez"},
	{"Carmen", "Ruiz"},
	{"Jorge", "Hernandez"},
	{"Sofia", "Garcia"},
	{"Miguel", "Torres"},
}

type appointmentBody struct {
	FirstName      string   `json:"firstName"`
	LastName       string   `json:"lastName"`
	Phone          string   `json:"phone"`
	Date           string   `json:"date"`
	Time           string   `json:"time"`
	ContactMethods []string `json:"contactMethods"`
}

func main() {
	var (
		baseURL = flag.String("base-url", config.String("BASE_URL", "http://localhost:8080"), "gateway base url")
		date    = flag.String("date", config.String("SEED_DATE", time.Now().Format(dateLayout)), "calendar day to fill (YYYY-MM-DD)")
		count   = flag.Int("count", config.Int("SEED_COUNT", 5), "number of appointments to book")
	)
	flag.Parse()

	if _, err := time.Parse(dateLayout, *date); err != nil {
		fatal("date must look like 2024-05-01")
	}
	if *count <= 0 {
		fatal("count must be positive")
	}

	client := &http.Client{Timeout: 10 * time.Second, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	base := strings.TrimRight(*baseURL, "/")
	available, err := fetchSlots(client, base+"/api/v1/agenda/slots")
	if err != nil {
		fatal(err.Error())
	}

	endpoint := base + "/api/v1/appointments"
	for i, body := range buildAppointments(*date, *count, available) {
		payload, err := json.Marshal(body)
		if err != nil {
			fatal(err.Error())
		}
		resp, err := client.Post(endpoint, "application/json", bytes.NewReader(payload))
		if err != nil {
			fatal(err.Error())
		}
		_ = resp.Body.Close()
		fmt.Printf("%d %s %s %s status=%d\n", i+1, body.Date, body.Time, body.FirstName+" "+body.LastName, resp.StatusCode)
	}
}

// buildAppointments cycles through slots, patients and contact methods.
// Past the last slot of the day it wraps around.
func buildAppointments(date string, count int, all []string) []appointmentBody {
	out := make([]appointmentBody, 0, count)
	for i := 0; i < count; i++ {
		p := patients[i%len(patients)]
		method := contactMethods[i%len(contactMethods)]
		out = append(out, appointmentBody{
			FirstName:      p[0],
			LastName:       p[1],
			Phone:          fmt.Sprintf("555%07d", i+1),
			Date:           date,
			Time:           all[i%len(all)],
			ContactMethods: []string{method},
		})
	}
	return out
}

func fetchSlots(client *http.Client, url string) ([]string, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("slots: unexpected status %d", resp.StatusCode)
	}
	var body struct {
		Slots []string `json:"slots"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if len(body.Slots) == 0 {
		return nil, fmt.Errorf("slots: agenda returned no slots")
	}
	return body.Slots, nil
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}

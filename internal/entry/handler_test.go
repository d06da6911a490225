package entry_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/reimagine-business/donna/internal"
	"github.com/reimagine-business/donna/internal/core/events"
	"github.com/reimagine-business/donna/internal/entry"
)

var _ = Describe("Entry Handler", func() {
	var (
		handler  *entry.Handler
		mockRepo *mockEntryRepository
		router   *chi.Mux
		userID   string
	)

	BeforeEach(func() {
		mockRepo = newMockEntryRepository()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service := entry.NewService(mockRepo, events.NewEventBus(logger), logger)
		handler = entry.NewHandler(service)
		userID = "user-1"

		router = chi.NewRouter()
		router.Post("/entries", handler.CreateEntry)
		router.Get("/entries", handler.ListEntries)
		router.Get("/entries/{id}", handler.GetEntry)
		router.Patch("/entries/{id}", handler.UpdateEntry)
		router.Delete("/entries/{id}", handler.DeleteEntry)
		router.Get("/meta/enums", handler.GetEnums)
	})

	doRequest := func(method, path string, body interface{}, asUser string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		if asUser != "" {
			req = req.WithContext(internal.ContextWithUserID(req.Context(), asUser))
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	Describe("POST /entries", func() {
		It("should create an entry and return 201", func() {
			dto := entry.CreateEntryDTO{
				EntryType:     string(entry.TypeCashIn),
				Category:      string(entry.CategorySales),
				PaymentMethod: string(entry.MethodCash),
				Amount:        decimal.NewFromInt(50000),
				EntryDate:     time.Now().Add(-time.Hour),
				Counterparty:  "Walk-in customer",
			}

			w := doRequest(http.MethodPost, "/entries", dto, userID)

			Expect(w.Code).To(Equal(http.StatusCreated))

			var created entry.Entry
			Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())
			Expect(created.ID).ToNot(BeEmpty())
			Expect(created.Settled).To(BeTrue())
		})

		It("should return 400 for an invalid payload", func() {
			dto := entry.CreateEntryDTO{
				EntryType:     string(entry.TypeCredit),
				Category:      string(entry.CategorySales),
				PaymentMethod: string(entry.MethodCash), // wrong pairing
				Amount:        decimal.NewFromInt(1000),
				EntryDate:     time.Now().Add(-time.Hour),
			}

			w := doRequest(http.MethodPost, "/entries", dto, userID)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("should return 401 without a user", func() {
			w := doRequest(http.MethodPost, "/entries", entry.CreateEntryDTO{}, "")
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("GET /entries/{id}", func() {
		It("should return 404 for another user's entry", func() {
			dto := entry.CreateEntryDTO{
				EntryType:     string(entry.TypeCashIn),
				Category:      string(entry.CategorySales),
				PaymentMethod: string(entry.MethodCash),
				Amount:        decimal.NewFromInt(100),
				EntryDate:     time.Now().Add(-time.Hour),
			}
			w := doRequest(http.MethodPost, "/entries", dto, userID)
			Expect(w.Code).To(Equal(http.StatusCreated))

			var created entry.Entry
			Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())

			w = doRequest(http.MethodGet, "/entries/"+created.ID, nil, "someone-else")
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("GET /entries", func() {
		It("should return the user's entries with a count", func() {
			for i := 0; i < 2; i++ {
				dto := entry.CreateEntryDTO{
					EntryType:     string(entry.TypeCashIn),
					Category:      string(entry.CategorySales),
					PaymentMethod: string(entry.MethodCash),
					Amount:        decimal.NewFromInt(100),
					EntryDate:     time.Now().Add(-time.Hour),
				}
				Expect(doRequest(http.MethodPost, "/entries", dto, userID).Code).To(Equal(http.StatusCreated))
			}

			w := doRequest(http.MethodGet, "/entries", nil, userID)
			Expect(w.Code).To(Equal(http.StatusOK))

			var response struct {
				Entries []*entry.Entry `json:"entries"`
				Count   int            `json:"count"`
			}
			Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
			Expect(response.Count).To(Equal(2))
			Expect(response.Entries).To(HaveLen(2))
		})
	})

	Describe("DELETE /entries/{id}", func() {
		It("should return 409 for a deferred entry with settlements", func() {
			dto := entry.CreateEntryDTO{
				EntryType:     string(entry.TypeCredit),
				Category:      string(entry.CategorySales),
				PaymentMethod: string(entry.MethodNone),
				Amount:        decimal.NewFromInt(1000),
				EntryDate:     time.Now().Add(-time.Hour),
			}
			w := doRequest(http.MethodPost, "/entries", dto, userID)
			Expect(w.Code).To(Equal(http.StatusCreated))

			var created entry.Entry
			Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())

			realization := &entry.Entry{
				ID:            "real-1",
				UserID:        userID,
				EntryType:     entry.TypeCashIn,
				Category:      entry.CategorySales,
				PaymentMethod: entry.MethodBank,
				Amount:        decimal.NewFromInt(400),
				Settled:       true,
				EntryDate:     time.Now().Add(-time.Hour),
				SourceEntryID: &created.ID,
			}
			Expect(mockRepo.Create(realization)).To(Succeed())

			w = doRequest(http.MethodDelete, "/entries/"+created.ID, nil, userID)
			Expect(w.Code).To(Equal(http.StatusConflict))
		})
	})

	Describe("GET /meta/enums", func() {
		It("should list the fixed vocabularies", func() {
			w := doRequest(http.MethodGet, "/meta/enums", nil, "")

			Expect(w.Code).To(Equal(http.StatusOK))

			var response map[string][]string
			Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
			Expect(response["entry_types"]).To(ConsistOf("CashIn", "CashOut", "Credit", "Advance"))
			Expect(response["categories"]).To(ConsistOf("Sales", "COGS", "Opex", "Assets"))
			Expect(response["payment_methods"]).To(ConsistOf("Cash", "Bank", "None"))
		})
	})
})

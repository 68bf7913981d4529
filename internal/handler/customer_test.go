package handler

import (
	"errors"
	"testing"

	"github.com/shxhid-in/ESSAR/internal/models"
	"github.com/shxhid-in/ESSAR/internal/util"

	"gorm.io/gorm"
)

func newTestCustomerHandler(t *testing.T) *CustomerHandler {
	t.Helper()
	cipher, err := util.NewFieldCipher("handler-test-passphrase")
	if err != nil {
		t.Fatalf("NewFieldCipher failed: %v", err)
	}
	return NewCustomerHandler(setupTestDB(t), cipher, 100)
}

func TestIntegration_SaveCustomerEncryptsAtRest(t *testing.T) {
	h := newTestCustomerHandler(t)

	id, errs, err := h.saveCustomer(saveCustomerReq{
		Name:    "John Smith",
		Phone:   "+14155551234",
		Email:   "john@example.com",
		Address: "221B Baker Street",
	})
	if len(errs) > 0 || err != nil {
		t.Fatalf("saveCustomer failed: errs=%v err=%v", errs, err)
	}

	var row models.Customer
	if err := h.DB.First(&row, id).Error; err != nil {
		t.Fatalf("load customer failed: %v", err)
	}
	for field, value := range map[string]string{
		"name":    row.Name,
		"phone":   row.Phone,
		"email":   row.Email,
		"address": row.Address,
	} {
		if !util.LooksEncrypted(value) {
			t.Errorf("%s stored unencrypted: %q", field, value)
		}
	}

	resp := h.toCustomerResp(&row)
	if resp.Name != "John Smith" || resp.Email != "john@example.com" {
		t.Errorf("decrypted customer = %+v", resp)
	}
}

func TestIntegration_SaveCustomerRejectsInvalid(t *testing.T) {
	h := newTestCustomerHandler(t)

	_, errs, err := h.saveCustomer(saveCustomerReq{Name: "X"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(errs) == 0 {
		t.Fatal("single-character name accepted")
	}

	var count int64
	h.DB.Model(&models.Customer{}).Count(&count)
	if count != 0 {
		t.Errorf("customer count = %d after rejection, want 0", count)
	}
}

func TestIntegration_UpdateMissingCustomer(t *testing.T) {
	h := newTestCustomerHandler(t)

	_, errs, err := h.saveCustomer(saveCustomerReq{ID: 999, Name: "John Smith"})
	if len(errs) > 0 {
		t.Fatalf("unexpected validation errors: %v", errs)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("err = %v, want ErrRecordNotFound", err)
	}
}

func TestIntegration_SearchCustomersDecryptedMatch(t *testing.T) {
	h := newTestCustomerHandler(t)

	names := []string{"John Smith", "Jane Johnson", "Alice Brown"}
	for _, name := range names {
		if _, errs, err := h.saveCustomer(saveCustomerReq{Name: name}); len(errs) > 0 || err != nil {
			t.Fatalf("saveCustomer(%q) failed: errs=%v err=%v", name, errs, err)
		}
	}

	// substring "john" only exists in plaintext; a match proves the
	// search decrypts before comparing
	data := performReport(t, h.SearchCustomers, "/api/customers/search?q=john")
	items := data["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("match count = %d, want 2 (John Smith, Jane Johnson)", len(items))
	}
}

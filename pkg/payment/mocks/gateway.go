// Package mocks has a mock of payment.Gateway.
package mocks

import (
	"context"

	"github.com/confixenvios/confixenvios-sub003/pkg/payment"
	"github.com/confixenvios/confixenvios-sub003/pkg/payment/asaas"
)

type Gateway struct {
	Impl struct {
		FindCustomer   func(ctx context.Context, cpfCnpj string) (asaas.Customer, bool, error)
		CreateCustomer func(ctx context.Context, cus asaas.Customer) (asaas.Customer, error)
		CreatePayment  func(ctx context.Context, req asaas.PaymentRequest) (asaas.Payment, error)
		GetPayment     func(ctx context.Context, paymentId string) (asaas.Payment, error)
		PixQrCode      func(ctx context.Context, paymentId string) (asaas.PixQrCode, error)
	}
	Calls struct {
		FindCustomer   []string
		CreateCustomer []asaas.Customer
		CreatePayment  []asaas.PaymentRequest
		GetPayment     []string
		PixQrCode      []string
	}
}

func NewGateway() *Gateway {
	return &Gateway{}
}

var _ payment.Gateway = &Gateway{}

func (m *Gateway) FindCustomer(ctx context.Context, cpfCnpj string) (asaas.Customer, bool, error) {
	m.Calls.FindCustomer = append(m.Calls.FindCustomer, cpfCnpj)
	if m.Impl.FindCustomer == nil {
		panic("FindCustomer: it should not be called")
	}
	return m.Impl.FindCustomer(ctx, cpfCnpj)
}

func (m *Gateway) CreateCustomer(ctx context.Context, cus asaas.Customer) (asaas.Customer, error) {
	m.Calls.CreateCustomer = append(m.Calls.CreateCustomer, cus)
	if m.Impl.CreateCustomer == nil {
		panic("CreateCustomer: it should not be called")
	}
	return m.Impl.CreateCustomer(ctx, cus)
}

func (m *Gateway) CreatePayment(ctx context.Context, req asaas.PaymentRequest) (asaas.Payment, error) {
	m.Calls.CreatePayment = append(m.Calls.CreatePayment, req)
	if m.Impl.CreatePayment == nil {
		panic("CreatePayment: it should not be called")
	}
	return m.Impl.CreatePayment(ctx, req)
}

func (m *Gateway) GetPayment(ctx context.Context, paymentId string) (asaas.Payment, error) {
	m.Calls.GetPayment = append(m.Calls.GetPayment, paymentId)
	if m.Impl.GetPayment == nil {
		panic("GetPayment: it should not be called")
	}
	return m.Impl.GetPayment(ctx, paymentId)
}

func (m *Gateway) PixQrCode(ctx context.Context, paymentId string) (asaas.PixQrCode, error) {
	m.Calls.PixQrCode = append(m.Calls.PixQrCode, paymentId)
	if m.Impl.PixQrCode == nil {
		panic("PixQrCode: it should not be called")
	}
	return m.Impl.PixQrCode(ctx, paymentId)
}

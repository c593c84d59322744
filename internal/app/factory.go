package app

import (
	"orderservice/internal/catalog"
	"orderservice/internal/notifications"
	"orderservice/internal/orders"
)

// ServiceFactory creates business logic services with their dependencies.
type ServiceFactory struct {
	container *Container
}

// NewServiceFactory creates a new service factory.
func NewServiceFactory(container *Container) *ServiceFactory {
	return &ServiceFactory{
		container: container,
	}
}

// CreateNotifier builds the notifier with both publish fan-outs: the
// in-process broadcaster and the external kafka channel.
func (f *ServiceFactory) CreateNotifier() *notifications.Notifier {
	return notifications.NewNotifier(
		f.container.store,
		f.container.Logger(),
		f.container.broadcaster,
		notifications.NewKafkaPublisher(f.container.notifyProducer),
	)
}

// CreateCoordinator builds the order transaction coordinator.
func (f *ServiceFactory) CreateCoordinator(notifier *notifications.Notifier) *orders.Coordinator {
	ledger := orders.NewStockLedger(f.container.Logger(), f.container.Tracer())
	return orders.NewCoordinator(
		f.container.store,
		ledger,
		notifier,
		f.container.cache,
		f.container.Logger(),
		f.container.Tracer(),
	)
}

// CreateStatusHandler builds the order status transition handler.
func (f *ServiceFactory) CreateStatusHandler(notifier *notifications.Notifier) *orders.StatusHandler {
	return orders.NewStatusHandler(f.container.store, notifier, f.container.Logger())
}

// CreateCatalogService builds the product catalog service.
func (f *ServiceFactory) CreateCatalogService(notifier *notifications.Notifier) *catalog.Service {
	return catalog.NewService(
		f.container.store,
		f.container.cache,
		f.container.images,
		notifier,
		f.container.Logger(),
	)
}

// CreateMessageHandler builds the order-request handler.
func (f *ServiceFactory) CreateMessageHandler(coordinator *orders.Coordinator) orders.MessageHandler {
	return orders.NewMessageHandler(coordinator, f.container.orderProducer, f.container.Logger())
}

// CreateConsumerService builds the inbound consumer loop.
func (f *ServiceFactory) CreateConsumerService(handler orders.MessageHandler) orders.ConsumerService {
	return orders.NewConsumerService(f.container.orderConsumer, handler, f.container.Logger())
}

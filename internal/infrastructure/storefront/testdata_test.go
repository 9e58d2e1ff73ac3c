package storefront

const sampleOrderJSON = `{
  "OrderID": 1057113,
  "InvoiceNumberPrefix": "AB-",
  "InvoiceNumber": 2041,
  "OrderDate": "2024-03-05T14:22:10",
  "OrderStatusID": 1,
  "BillingFirstName": "Dana",
  "BillingLastName": "Reyes",
  "BillingCompany": "",
  "BillingAddress": "12 Harbor Way",
  "BillingAddress2": "Suite 4",
  "BillingCity": "Portland",
  "BillingState": "OR",
  "BillingZipCode": "97201",
  "BillingCountry": "US",
  "BillingPhoneNumber": "503-555-0100",
  "BillingEmail": "dana@example.com",
  "BillingPaymentMethod": "Credit Card",
  "OrderAmount": 118.50,
  "SalesTax": 8.50,
  "OrderDiscount": 10.00,
  "ShipmentList": [
    {
      "ShipmentFirstName": "Sam",
      "ShipmentLastName": "Reyes",
      "ShipmentAddress": "99 Pine St",
      "ShipmentCity": "Salem",
      "ShipmentState": "OR",
      "ShipmentZipCode": "97301",
      "ShipmentCountry": "US",
      "ShipmentCost": 7.50
    },
    {
      "ShipmentFirstName": "Sam",
      "ShipmentLastName": "Reyes",
      "ShipmentCost": 2.50
    }
  ],
  "OrderItemList": [
    {"CatalogID": 301, "ItemID": " WIDGET-1 ", "ItemDescription": "Widget", "ItemQuantity": 2, "ItemUnitPrice": 45.00, "ItemOptionPrice": 2.50},
    {"CatalogID": 0, "ItemID": "GADGET-9", "ItemDescription": "Gadget", "ItemQuantity": 1, "ItemUnitPrice": 10.00, "ItemOptionPrice": 0}
  ],
  "QuestionList": [
    {"QuestionID": 1, "QuestionTitle": "Gift note", "QuestionAnswer": "Happy birthday"}
  ]
}`

package catalog

// Defaults returns the built-in service list used when the config declares none.
func Defaults() []Service {
	return []Service{
		{
			ID:          "1",
			Name:        "Подача уведомления в Роскомнадзор",
			Description: "Подготовим и подадим уведомление об обработке персональных данных в Роскомнадзор.",
			PriceMinor:  500000,
			AssetURL:    "https://callmylawyer.ru/materials/rkn",
		},
		{
			ID:          "2",
			Name:        "Пакет документов для психологов",
			Description: "Договор оферты, согласие на обработку данных и политика конфиденциальности для частной практики.",
			PriceMinor:  300000,
			AssetURL:    "https://callmylawyer.ru/materials/psychologists",
		},
		{
			ID:          "3",
			Name:        "Реклама по новым правилам",
			Description: "Видео-урок о маркировке рекламы и отчётности в ЕРИР.",
			PriceMinor:  0,
			AssetURL:    "https://callmylawyer.ru/materials/ads-video",
		},
	}
}

// Default builds the catalog from Defaults.
func Default() *Catalog {
	c, err := New(Defaults())
	if err != nil {
		panic(err)
	}
	return c
}

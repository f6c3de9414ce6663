package clean

// Region markers, tried in order. The first selector that matches anything
// decides the region.
var (
	ingredientMarkers = []string{
		`[class*="ingredient"]`,
		`[id*="ingredient"]`,
		`[itemprop="recipeIngredient"]`,
		`[class*="ingredients-list"]`,
		`[id*="ingredients-list"]`,
		`ul.ingredients, ol.ingredients`,
		`.recipe-ingredients, #recipe-ingredients`,
		`[data-ingredients]`,
		`.wprm-recipe-ingredients-container`,
		`.wprm-recipe-ingredient`,
		`[class*="wprm-recipe-ingredient"]`,
	}
	instructionMarkers = []string{
		`[class*="instruction"]`,
		`[class*="direction"]`,
		`[id*="instruction"]`,
		`[id*="direction"]`,
		`[itemprop="recipeInstructions"]`,
		`[class*="steps"]`,
		`[id*="steps"]`,
		`.recipe-instructions, #recipe-instructions`,
		`.recipe-directions, #recipe-directions`,
		`[data-instructions]`,
		`ol.instructions, ul.instructions`,
		`.wprm-recipe-instructions-container`,
		`.wprm-recipe-instruction`,
		`[class*="wprm-recipe-instruction"]`,
	}

	ingredientContainer  = `[class*="ingredient"], [id*="ingredient"], section, div`
	instructionContainer = `[class*="instruction"], [class*="direction"], [class*="step"], section, div`

	ingredientHeadings  = []string{"ingredients"}
	instructionHeadings = []string{"instructions", "directions", "steps"}

	titleSelector = `h1, .recipe-title, [class*="recipe-title"], [itemprop="name"]`
)

// noise is removed from the whole document unconditionally.
var noise = []string{
	// scripts, styles, media, forms
	`script, style, noscript, link, meta, head, svg, symbol, img, picture, button, iframe, video, audio, canvas, form, input, select, option, textarea, template`,
	// navigation
	`nav, .navbar, .nav, .navigation, .site-nav, .menu, .mobile-menu, [role="navigation"]`,
	`footer, .footer, .site-footer, [role="contentinfo"]`,
	`aside, .sidebar, .side-bar, .secondary, [role="complementary"]`,
	// ads
	`.ad, .ads, .advertisement, .sponsor, .sponsored, .promo, .promotion, .banner-ad, .ad-container, .ad-slot, .adsbygoogle, .outbrain, .taboola`,
	`.social, .share, .sharing, .social-share, .share-buttons, .social-media, .follow, .social-icons, .network-icons`,
	`.comments, .comment, .comment-section, #comments, #comment, [class*="comment"], [id*="comment"], [class*="disqus"], [id*="disqus"]`,
	`.rating, .ratings, .reviews, .review, .stars, .rmp-rating-widget, .rmp-widgets-container`,
	`.newsletter, .subscribe, .subscription, .signup, .email-signup, .popup, .modal, .overlay, .push-modal, .push-subscribe`,
	`.breadcrumb, .breadcrumbs, .breadcrumb-container, .breadcrumbs-container`,
	`.author, .author-box, .author-info, .byline, .author-byline`,
	`.entry-meta, .entry-metadata, .post-meta, .post-metadata, .entry-footer, .post-footer, .entry-date, .post-date`,
	`.print, .print-btn, .print-recipe, .printable, .jump-to-recipe, .scroll-to-top, .floating-btn`,
	`.search, .search-box, .search-container, .search-form, .site-search, .search-bar`,
	`.app-banner, .mobile-banner, .mobile-sticky, .open-app, .app-link, .download-app`,
	`.theme-toggle, .dark-mode, .light-mode, .toggle-switch, .color-mode, .font-size-control`,
	`.tooltip, .tooltips, .hint, .hovercard, .dropdown-menu, .dropdown`,
	`.related, .related-posts, .recommendations, .you-may-like, .more-recipes, .thumb-grid`,
	`.hero-video-container, .video-container, .video-wrapper`,
	`lite-youtube, [class*="twitter"], [class*="instagram"], [class*="facebook"]`,
	`gcse, [class*="gcse"]`,
	`.screen-reader-text, .sr-only, .visually-hidden`,
	`[class*="nutrition"], [id*="nutrition"], [class*="calorie"], [id*="calorie"]`,
	// cookie and consent banners; anchored so "category-cookies" posts survive
	`#cookie-notice, #cookie-banner, #cookie-law-info-bar, .cookie-notice, .cookie-banner, .cookie-bar, [class*="cookie-consent"], [id*="cookie-consent"], [id^="cookie-law"], [class*="cookie-notice"]`,
	`[class*="consent-banner"], [id*="consent-banner"], [class*="gdpr"], [id*="gdpr"]`,
}

const (
	// headers survive when they carry the structured-data payload
	headerSelector = `header, .header, .site-header, [role="banner"]`
	ldJSONSelector = `script[type="application/ld+json"]`

	// layout blocks survive when they wrap recipe content
	blockSelector  = `.wp-block-group, .wp-block-buttons, .wp-block-embed, .widget`
	recipeMarkers  = `[class*="recipe"], [class*="ingredient"], [class*="instruction"]`
	metaWidgets    = `[class*="prep-time"], [class*="cook-time"], [class*="serving"], [class*="yield"], [class*="time"]`
	minimalNoise   = `script, style, noscript, nav, header, footer, aside, img, picture, svg, video, audio, iframe`
	contentRoots   = `main, article, [role="main"]`
	contentBuckets = `div[class*="content"], div[class*="post"], div[class*="entry"]`
)
